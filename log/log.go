// Package log writes leveled, printf style messages to syslog, stderr or a file.
//
// Nothing is written until Init or SetDefault installs a logger, so packages can log freely
// from library code and tests.
package log

import (
	"flag"
	"fmt"
	"io"
	reallog "log"
	"log/syslog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

var (
	dflt      Logger
	dfltMutex sync.RWMutex

	useStderr bool
	useSyslog bool
	useFile   string
	logLevel  string
	fileLine  bool

	spewConfig = spew.ConfigState{
		Indent:   "  ",
		SortKeys: true,
		MaxDepth: 3,
	}

	colorPriority = map[syslog.Priority]string{
		syslog.LOG_EMERG:   NC,
		syslog.LOG_ALERT:   LightGreen,
		syslog.LOG_CRIT:    LightRed,
		syslog.LOG_ERR:     LightRed,
		syslog.LOG_WARNING: Yellow,
		syslog.LOG_NOTICE:  NC,
		syslog.LOG_INFO:    Blue,
		syslog.LOG_DEBUG:   Green,
	}

	priorityNames = map[syslog.Priority]string{
		syslog.LOG_EMERG:   "EMERGENCY",
		syslog.LOG_ALERT:   "ALERT",
		syslog.LOG_CRIT:    "CRITICAL",
		syslog.LOG_ERR:     "ERROR",
		syslog.LOG_WARNING: "WARNING",
		syslog.LOG_NOTICE:  "NOTICE",
		syslog.LOG_INFO:    "INFO",
		syslog.LOG_DEBUG:   "DEBUG",
		LOG_TRACE:          "TRACE",
	}
)

const (
	LOG_TRACE = syslog.LOG_DEBUG + 1

	LightRed   = "\033[1;31m"
	Yellow     = "\033[0;33m"
	Blue       = "\033[0;34m"
	NC         = "\033[0m"
	Green      = "\033[0;32m"
	LightGreen = "\033[1;32m"
)

func init() {
	flag.BoolVar(&useStderr, "stdlog", false, "Write log to stderr?")
	flag.BoolVar(&useSyslog, "syslog", true, "Write log to syslog?")
	flag.BoolVar(&fileLine, "srcloc", true, "Find and write file:lineno to log?")
	flag.StringVar(&useFile, "filelog", "", "Write log to this file")
	flag.StringVar(&logLevel, "log", "info", "Set the logging level")
}

// ParseLevel accepts the level names printed in log lines, in any case.
func ParseLevel(s string) (syslog.Priority, error) {
	for prio, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return prio, nil
		}
	}
	return 0, errors.Errorf("unknown logging level: %v", s)
}

// Init installs the default logger configured by the command line flags.
func Init(procname string) {
	level, err := ParseLevel(logLevel)
	if err != nil {
		reallog.Fatal(err)
	}

	var textlogs []io.Writer
	if useStderr {
		textlogs = append(textlogs, os.Stderr)
	}
	if useFile != "" {
		f, err := os.OpenFile(useFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			reallog.Fatalf("Could not open log file: %v", useFile)
		}
		textlogs = append(textlogs, f)
	}

	logger := NewLogger(level, textlogs...)
	logger.fileLine = fileLine
	logger.color = true
	if useSyslog {
		w, err := syslog.Dial("", "", syslog.LOG_LOCAL0, procname)
		if err != nil {
			reallog.Fatalf("Could not dial syslog: %v", err)
		}
		logger.syslogs = []*syslog.Writer{w}
	}
	SetDefault(logger)
}

// SetDefault replaces the logger used by the package level functions. nil silences them.
func SetDefault(l Logger) {
	dfltMutex.Lock()
	dflt = l
	dfltMutex.Unlock()
}

func getDefault() Logger {
	dfltMutex.RLock()
	defer dfltMutex.RUnlock()
	return dflt
}

type Logger interface {
	Log(prio syslog.Priority, msgFmt string, args ...interface{})
	TraceMsg(msgFmt string, args ...interface{})
	Fatal(msgFmt string, args ...interface{})

	Crit(msgFmt string, args ...interface{})
	Error(msgFmt string, args ...interface{})
	Warn(msgFmt string, args ...interface{})
	Notice(msgFmt string, args ...interface{})
	Info(msgFmt string, args ...interface{})
	Debug(msgFmt string, args ...interface{})
}

// TextLogger writes plain text lines, and syslog messages when Init dialed syslog.
type TextLogger struct {
	level    syslog.Priority
	fileLine bool
	color    bool
	syslogs  []*syslog.Writer

	mu       sync.Mutex
	textlogs []io.Writer
}

// NewLogger returns a logger writing every message at level or above to textlogs,
// without colors or source locations.
func NewLogger(level syslog.Priority, textlogs ...io.Writer) *TextLogger {
	return &TextLogger{
		level:    level,
		textlogs: textlogs,
	}
}

// Spew dumps obj for debugging.
func Spew(obj ...interface{}) string {
	return spewConfig.Sdump(obj...)
}

func (l *TextLogger) Log(prio syslog.Priority, msgFmt string, args ...interface{}) {
	if prio > l.level {
		return
	}
	msg := spewConfig.Sprintf(msgFmt, fmtArgs(msgFmt, args)...)
	name := priorityName(prio)
	if l.color {
		name = colorPriority[prio] + name + NC
	}
	now := time.Now().Format(time.RFC3339Nano)
	if l.fileLine || prio == LOG_TRACE {
		file, line := logSite()
		msg = fmt.Sprintf("%s: %v (%v:%v) %v", name, now, file, line, msg)
	} else {
		msg = fmt.Sprintf("%s: %v %v", name, now, msg)
	}
	l.writeToSyslogs(prio, msg)
	l.writeToTextLogs(msg)
}

func (l *TextLogger) TraceMsg(msgFmt string, args ...interface{}) {
	l.Log(LOG_TRACE, msgFmt, args...)
}

func (l *TextLogger) writeToSyslogs(prio syslog.Priority, msg string) {
	for _, w := range l.syslogs {
		var err error
		switch prio {
		case syslog.LOG_EMERG:
			err = w.Emerg(msg)
		case syslog.LOG_ALERT:
			err = w.Alert(msg)
		case syslog.LOG_CRIT:
			err = w.Crit(msg)
		case syslog.LOG_WARNING:
			err = w.Warning(msg)
		case syslog.LOG_NOTICE:
			err = w.Notice(msg)
		case syslog.LOG_INFO:
			err = w.Info(msg)
		case syslog.LOG_DEBUG, LOG_TRACE:
			err = w.Debug(msg)
		default:
			err = w.Err(msg)
		}
		if err != nil {
			reallog.Printf("Error returned by syslog: %v", err)
		}
	}
}

func (l *TextLogger) writeToTextLogs(msg string) {
	msg += "\n"
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, textLog := range l.textlogs {
		io.WriteString(textLog, msg)
	}
}

// fmtArgs drops the arguments that have no verb in format.
func fmtArgs(format string, args []interface{}) []interface{} {
	lastWasPcnt := false
	fmtParams := 0
	for _, r := range format {
		if r == '%' {
			if !lastWasPcnt {
				fmtParams++
			} else {
				fmtParams--
			}
			lastWasPcnt = !lastWasPcnt
		} else {
			lastWasPcnt = false
		}
	}
	if fmtParams > len(args) {
		fmtParams = len(args)
	}
	return args[0:fmtParams]
}

func shaveSrcFile(fn string) string {
	if strings.HasPrefix(fn, "sbd/") {
		return fn[len("sbd/"):]
	}
	idx := strings.LastIndex(fn, "/sbd/")
	if idx < 0 {
		return fn
	}
	return fn[idx+len("/sbd/"):]
}

func logSite() (string, int) {
	for skip := 1; ; skip++ {
		pc, file, line, ok := runtime.Caller(skip)
		if !ok {
			return "", -1
		}
		if fn := runtime.FuncForPC(pc); fn != nil && strings.HasPrefix(fn.Name(), "sbd/log.") {
			continue
		}
		return shaveSrcFile(file), line
	}
}

func (l *TextLogger) Fatal(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_CRIT, msgFmt, args...)
	os.Exit(1)
}
func (l *TextLogger) Crit(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_CRIT, msgFmt, args...)
}
func (l *TextLogger) Error(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_ERR, msgFmt, args...)
}
func (l *TextLogger) Warn(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_WARNING, msgFmt, args...)
}
func (l *TextLogger) Notice(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_NOTICE, msgFmt, args...)
}
func (l *TextLogger) Info(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_INFO, msgFmt, args...)
}
func (l *TextLogger) Debug(msgFmt string, args ...interface{}) {
	l.Log(syslog.LOG_DEBUG, msgFmt, args...)
}

/************
 *  DEFAULT logger interface
 */
func Log(prio syslog.Priority, msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Log(prio, msgFmt, args...)
	}
}
func TraceMsg(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.TraceMsg(msgFmt, args...)
	}
}

// Fatal exits the process even when no logger is installed.
func Fatal(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Fatal(msgFmt, args...)
	}
	reallog.Fatalf(msgFmt, args...)
}
func Crit(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Crit(msgFmt, args...)
	}
}
func Error(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Error(msgFmt, args...)
	}
}
func Warn(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Warn(msgFmt, args...)
	}
}
func Notice(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Notice(msgFmt, args...)
	}
}
func Info(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Info(msgFmt, args...)
	}
}
func Debug(msgFmt string, args ...interface{}) {
	if l := getDefault(); l != nil {
		l.Debug(msgFmt, args...)
	}
}

func priorityName(prio syslog.Priority) string {
	if name, ok := priorityNames[prio]; ok {
		return name
	}
	return "UNKNOWN"
}
