package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"sbd/gogroup"
	"sbd/iridium"
	"sbd/storage/file"

	"github.com/davecgh/go-spew/spew"
	"github.com/json-iterator/go"
	"github.com/pkg/errors"
)

func info(_ gogroup.GoGroup, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print each message as a line of JSON")
	dump := fs.Bool("dump", false, "Dump the decoded elements")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *asJSON && *dump {
		return errors.New("-json and -dump are exclusive")
	}
	paths, err := expand(fs.Args())
	if err != nil {
		return err
	}
	for _, path := range paths {
		m, err := file.Read(path)
		if err != nil {
			return err
		}
		switch {
		case *asJSON:
			b, err := jsoniter.Marshal(newDocument(path, m))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", b)
		case *dump:
			fmt.Fprintf(w, "%v:\n", path)
			dumper.Fdump(w, m)
		default:
			describe(w, path, m)
		}
	}
	return nil
}

// dumper shows the elements themselves rather than Message.String.
var dumper = spew.ConfigState{Indent: "  ", DisableMethods: true, DisablePointerAddresses: true}

func describe(w io.Writer, path string, m *iridium.Message) {
	fmt.Fprintf(w, "%v\n", path)
	fmt.Fprintf(w, "  %v message, IMEI %v\n", m.Direction(), m.IMEI())
	for _, ie := range m.Elements {
		switch e := ie.(type) {
		case iridium.MOHeader:
			fmt.Fprintf(w, "  CDR reference %v, session %v, MOMSN %v, MTMSN %v, at %v\n",
				e.CDRReference, e.SessionStatus, e.MOMSN, e.MTMSN, e.TimeOfSession.Format(time.RFC3339))
		case iridium.MTHeader:
			fmt.Fprintf(w, "  client message id %v, flags %+v\n", e.ClientMessageID, e.Flags())
		case iridium.MOLocation:
			fmt.Fprintf(w, "  location %.5f, %.5f within %v km\n", e.Latitude(), e.Longitude(), e.CEPRadius)
		case iridium.MOConfirmation:
			fmt.Fprintf(w, "  confirmation, accepted %v\n", e.Accepted)
		case iridium.MTPriority:
			fmt.Fprintf(w, "  priority %v\n", e.Level)
		}
	}
	fmt.Fprintf(w, "  payload %d bytes: %q\n", len(m.Payload()), m.Payload())
}

// document is the JSON form of a stored message.
type document struct {
	Path      string `json:"path"`
	IMEI      string `json:"imei"`
	Direction string `json:"direction"`

	CDRReference  *uint32    `json:"cdr_reference,omitempty"`
	SessionStatus string     `json:"session_status,omitempty"`
	MOMSN         *uint16    `json:"momsn,omitempty"`
	MTMSN         *uint16    `json:"mtmsn,omitempty"`
	TimeOfSession *time.Time `json:"time_of_session,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	CEPRadius *uint32  `json:"cep_radius,omitempty"`

	ClientMessageID  *uint32 `json:"client_message_id,omitempty"`
	DispositionFlags *uint16 `json:"disposition_flags,omitempty"`
	Priority         *uint16 `json:"priority,omitempty"`

	Payload []byte `json:"payload"`
}

func newDocument(path string, m *iridium.Message) *document {
	d := &document{
		Path:      path,
		IMEI:      m.IMEI().String(),
		Direction: m.Direction().String(),
		Payload:   m.Payload(),
	}
	for _, ie := range m.Elements {
		switch e := ie.(type) {
		case iridium.MOHeader:
			d.CDRReference = &e.CDRReference
			d.SessionStatus = e.SessionStatus.String()
			d.MOMSN = &e.MOMSN
			d.MTMSN = &e.MTMSN
			d.TimeOfSession = &e.TimeOfSession
		case iridium.MOLocation:
			lat, lon := e.Latitude(), e.Longitude()
			d.Latitude, d.Longitude = &lat, &lon
			d.CEPRadius = &e.CEPRadius
		case iridium.MTHeader:
			d.ClientMessageID = &e.ClientMessageID
			d.DispositionFlags = &e.DispositionFlags
		case iridium.MTPriority:
			d.Priority = &e.Level
		}
	}
	return d
}
