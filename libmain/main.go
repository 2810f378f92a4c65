// Package libmain is the common main of the sbd executables.
package libmain

import (
	"flag"
	"fmt"
	golog "log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"

	"sbd/gogroup"
	"sbd/log"

	"github.com/kardianos/osext"
)

var (
	VersionNumber = "dev"
	VersionDate   = "unknown"
)

var (
	// Background routines which must exit before we exit
	Background gogroup.GoGroup

	ProfilePort  string
	PrintVersion bool
)

func init() {
	flag.StringVar(&ProfilePort, "profile", "", "Profile and listen on this port e.g. localhost:6060")
	flag.BoolVar(&PrintVersion, "version", false, "Print version then exit")
}

// Main parses flags, sets up logging and runs realMain in the background group. It returns
// once realMain and everything it started in the group have exited.
func Main(realMain gogroup.Func) {
	flag.Parse()
	log.RegisterTracers()

	exe, err := osext.Executable()
	if err != nil {
		golog.Fatalf("Cannot find executable: %v", err)
	}

	if PrintVersion {
		fmt.Printf("%v version: %v build date %v\n", path.Base(exe), VersionNumber, VersionDate)
		os.Exit(0)
	}

	runtime.SetBlockProfileRate(0)
	if ProfilePort != "" {
		runtime.SetBlockProfileRate(10)
		go func() { golog.Println(http.ListenAndServe(ProfilePort, nil)) }()
	}

	log.Init(path.Base(exe))
	Background = gogroup.New(nil, "background")
	Background.ErrCallback(LogGroupError("background"))

	sigch := make(chan os.Signal, 2)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		log.Info("Got %v, cancelling main context", sig)
		if EnvDevelopment() {
			log.Info("SBD_ENV=development, killing program")
			os.Exit(1)
		}
		Background.Cancel(nil)

		<-sigch
		log.Info("Got second signal, killing program")
		os.Exit(1)
	}()

	Background.Run(realMain)
	// realMain may only have started goroutines; hold the group open until cancel.
	Background.Run(func(g gogroup.GoGroup) error {
		<-g.Done()
		return nil
	})
	Background.Wait()
}

// LogGroupError is an error callback for gogroup that logs panics with their stack.
func LogGroupError(name string) func(error) {
	return func(err error) {
		if pe, ok := err.(gogroup.PanicError); ok {
			log.Error("Panic in %v goroutine: %v\n%v", name, pe.Msg, pe.Stack)
			return
		}
		log.Error("Error in %v goroutine: %v", name, err)
	}
}

func EnvDevelopment() bool {
	return os.Getenv("SBD_ENV") == "development"
}
