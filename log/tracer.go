package log

import (
	"flag"
	"fmt"
	"strings"
	"sync"
)

type tracerFlags []string

var (
	enabledTracers tracerFlags
	tracerMutex    sync.Mutex
	tracers        = make(map[string]*Tracer)
)

// Tracer logs at trace level under a name, and only when enabled with -trace.
type Tracer struct {
	Enabled bool
	Prefix  string
}

func (t *Tracer) Log(message string) {
	if t.Enabled {
		TraceMsg("%s%s", t.Prefix, message)
	}
}

func (t *Tracer) Logf(format string, args ...interface{}) {
	if t.Enabled {
		TraceMsg("%s%s", t.Prefix, fmt.Sprintf(format, args...))
	}
}

func GetTracer(name string) *Tracer {
	tracerMutex.Lock()
	defer tracerMutex.Unlock()
	tracer := tracers[name]
	if tracer == nil {
		tracer = &Tracer{Prefix: fmt.Sprintf("[%v] ", name)}
		tracers[name] = tracer
	}
	return tracer
}

func (t tracerFlags) String() string {
	return strings.Join(t, ",")
}

func (t *tracerFlags) Set(value string) error {
	*t = append(*t, strings.Split(value, ",")...)
	return nil
}

func init() {
	flag.Var(&enabledTracers, "trace", "comma-separated list of tracers to enable")
}

// RegisterTracers enables the tracers named with -trace. Call it after flag.Parse.
func RegisterTracers() {
	for _, name := range enabledTracers {
		GetTracer(name).Enabled = true
	}
}
