// sbdd receives Iridium SBD messages over DirectIP and stores them.
package main

import (
	"flag"
	"time"

	"sbd/config"
	"sbd/directip"
	"sbd/gogroup"
	"sbd/libmain"
	"sbd/log"
	"sbd/monitor"

	"github.com/armon/go-metrics"
)

var (
	configFile = flag.String("config", "", "TOML configuration file, defaults apply when empty")
	overrides  = config.RegisterFlags(flag.CommandLine)
)

func main() {
	libmain.Main(run)
}

func run(g gogroup.GoGroup) error {
	cfg, err := config.Load(*configFile)
	if err == nil {
		err = overrides.Apply(cfg)
	}
	if err != nil {
		log.Fatal("%v", err)
	}

	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	mcfg := metrics.DefaultConfig("sbdd")
	mcfg.EnableHostname = false
	if _, err := metrics.NewGlobal(mcfg, sink); err != nil {
		log.Fatal("metrics: %v", err)
	}

	stores, err := openStores(cfg.Storage)
	if err != nil {
		log.Fatal("%v", err)
	}

	srv := directip.NewServer(directip.Config{
		IdleTimeout:    cfg.DirectIP.IdleTimeout.Duration,
		SessionTimeout: cfg.DirectIP.SessionTimeout.Duration,
		MaxConnections: cfg.DirectIP.MaxConnections,
		Confirm:        cfg.DirectIP.Confirm,
		OutcomeBuffer:  cfg.DirectIP.OutcomeBuffer,
	}, stores.store)
	if err := srv.Listen(cfg.DirectIP.Listen); err != nil {
		log.Fatal("%v", err)
	}

	if cfg.Monitor.Listen != "" {
		var finder monitor.Finder
		if stores.memory != nil {
			finder = stores.memory
		}
		mon := monitor.New(sink, finder)
		g.Go(func(g gogroup.GoGroup) error {
			return mon.ListenAndServe(g, cfg.Monitor.Listen)
		})
	}

	stopLogging := logOutcomes(srv)
	g.Go(func(g gogroup.GoGroup) error {
		err := srv.Serve(g)
		log.Info("Shutting down DirectIP, waiting up to %v for sessions", cfg.DirectIP.ShutdownTimeout.Duration)
		if serr := srv.Shutdown(cfg.DirectIP.ShutdownTimeout.Duration); serr != nil {
			log.Warn("%v", serr)
		}
		stopLogging()
		stores.close()
		return err
	})
	return nil
}

// logOutcomes logs every session outcome. The returned function is called once srv was
// shut down; it logs the outcomes still in flight and stops.
func logOutcomes(srv *directip.Server) (stop func()) {
	member := srv.Subscribe()
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		received := 0
		for {
			select {
			case v := <-member.In:
				received++
				if o, ok := v.(directip.Outcome); ok {
					logOutcome(o)
				}
			case <-done:
				for _, o := range srv.Unsubscribe(member, received, time.Second) {
					logOutcome(o)
				}
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func logOutcome(o directip.Outcome) {
	switch {
	case o.Stored():
		log.Info("Session %v from %v: stored %v in %v", o.SessionID, o.RemoteAddr, o.Message, o.Duration)
	case o.State == directip.Complete:
		log.Warn("Session %v from %v: received %v, not stored: %v", o.SessionID, o.RemoteAddr, o.Message, o.Err)
	default:
		log.Notice("Session %v from %v: %v after %v: %v", o.SessionID, o.RemoteAddr, o.State, o.Duration, o.Err)
	}
}
