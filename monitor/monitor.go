// Package monitor serves the health, metrics and recent messages of a running sbdd over HTTP.
package monitor

import (
	reallog "log"
	"log/syslog"
	"net"
	"net/http"
	"time"

	"sbd/gogroup"
	"sbd/log"
	"sbd/storage"

	"github.com/armon/go-metrics"
	"github.com/gorilla/mux"
	"github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Finder looks up stored messages by modem.
type Finder interface {
	FindByIMEI(imei string) ([]*storage.Record, error)
}

type Monitor struct {
	router   *mux.Router
	sink     *metrics.InmemSink
	messages Finder
}

// New builds the routes. messages may be nil, in which case /messages answers 404.
func New(sink *metrics.InmemSink, messages Finder) *Monitor {
	m := &Monitor{
		router:   mux.NewRouter(),
		sink:     sink,
		messages: messages,
	}
	m.router.HandleFunc("/healthz", m.health).Methods("GET")
	m.router.HandleFunc("/metrics", m.metrics).Methods("GET")
	m.router.HandleFunc("/messages/{imei}", m.findMessages).Methods("GET")
	return m
}

func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

// Serve answers requests on l until g is canceled.
func (m *Monitor) Serve(g gogroup.GoGroup, l net.Listener) error {
	srv := &http.Server{
		Handler:      m,
		WriteTimeout: 1 * time.Minute,
		ReadTimeout:  30 * time.Second,
		ErrorLog:     reallog.New(log.NewWriter(syslog.LOG_ERR), "monitor: ", 0),
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-g.Done():
			srv.Close()
		case <-stop:
		}
	}()
	log.Info("monitor: listening on %v", l.Addr())
	if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "monitor")
	}
	return nil
}

// ListenAndServe is Serve on a new listener bound to addr.
func (m *Monitor) ListenAndServe(g gogroup.GoGroup, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "monitor listen")
	}
	return m.Serve(g, l)
}

func (m *Monitor) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (m *Monitor) metrics(w http.ResponseWriter, r *http.Request) {
	if m.sink == nil {
		http.NotFound(w, r)
		return
	}
	summary, err := m.sink.DisplayMetrics(w, r)
	if err != nil {
		log.Error("monitor: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

// message is the JSON summary of a stored message.
type message struct {
	ID        string    `json:"id"`
	IMEI      string    `json:"imei"`
	Direction string    `json:"direction"`
	Received  time.Time `json:"received"`
	MOMSN     *uint16   `json:"momsn,omitempty"`
	Payload   []byte    `json:"payload"`
	Elements  string    `json:"elements"`
}

func (m *Monitor) findMessages(w http.ResponseWriter, r *http.Request) {
	if m.messages == nil {
		http.NotFound(w, r)
		return
	}
	imei := mux.Vars(r)["imei"]
	records, err := m.messages.FindByIMEI(imei)
	if err != nil {
		log.Error("monitor: finding messages of %v: %v", imei, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	messages := make([]message, 0, len(records))
	for _, rec := range records {
		msg := message{
			ID:        rec.ID,
			IMEI:      rec.IMEI,
			Direction: rec.Direction.String(),
			Received:  rec.Received,
			Payload:   rec.Message.Payload(),
			Elements:  rec.Message.String(),
		}
		if h, ok := rec.Message.MOHeader(); ok {
			momsn := h.MOMSN
			msg.MOMSN = &momsn
		}
		messages = append(messages, msg)
	}
	writeJSON(w, messages)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := jsoniter.Marshal(v)
	if err != nil {
		log.Error("monitor: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
