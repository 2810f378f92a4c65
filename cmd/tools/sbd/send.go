package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"time"

	"sbd/directip"
	"sbd/gogroup"
	"sbd/iridium"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

func send(g gogroup.GoGroup, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	gss := fs.String("gss", "", "Gateway DirectIP address HOST:PORT")
	imei := fs.String("imei", "", "IMEI of the destination modem")
	id := fs.Uint("id", 0, "Client message id, echoed in the confirmation")
	flags := fs.String("flags", "", "Comma separated disposition flags: flush, ring, location, high, mtmsn")
	priority := fs.Uint("priority", 0, "Priority level 1 (highest) to 5, 0 to send none")
	text := fs.String("text", "", "Payload text")
	payloadFile := fs.String("file", "", "File holding the payload")
	timeout := fs.Duration("timeout", 30*time.Second, "Timeout for the whole exchange")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *gss == "" {
		return errors.New("-gss is required")
	}

	var payload []byte
	switch {
	case *text != "" && *payloadFile != "":
		return errors.New("-text and -file are exclusive")
	case *text != "":
		payload = []byte(*text)
	case *payloadFile != "":
		path, err := homedir.Expand(*payloadFile)
		if err != nil {
			return err
		}
		if payload, err = ioutil.ReadFile(path); err != nil {
			return err
		}
	default:
		return errors.New("one of -text or -file is required")
	}

	m, err := buildMT(*imei, uint32(*id), *flags, uint16(*priority), payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(g, *timeout)
	defer cancel()
	c, err := directip.SendMT(ctx, *gss, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "message %v to %v: %v, gateway id %v\n", c.ClientMessageID, c.IMEI, c.Status, c.AutoIDReference)
	if !c.Status.Queued() {
		return errors.Errorf("not queued: %v", c.Status)
	}
	return nil
}

func buildMT(imei string, id uint32, flags string, priority uint16, payload []byte) (*iridium.Message, error) {
	i, err := iridium.ParseIMEI(imei)
	if err != nil {
		return nil, errors.Wrapf(err, "-imei %q", imei)
	}
	f, err := parseFlags(flags)
	if err != nil {
		return nil, err
	}
	elements := []iridium.InformationElement{
		iridium.MTHeader{ClientMessageID: id, IMEI: i, DispositionFlags: f.Encode()},
		iridium.MTPayload{Data: payload},
	}
	if priority != 0 {
		elements = append(elements, iridium.MTPriority{Level: priority})
	}
	return iridium.NewMessage(elements...)
}

func parseFlags(s string) (iridium.DispositionFlags, error) {
	var f iridium.DispositionFlags
	if s == "" {
		return f, nil
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "flush":
			f.FlushQueue = true
		case "ring":
			f.SendRingAlert = true
		case "location":
			f.UpdateLocation = true
		case "high":
			f.HighPriority = true
		case "mtmsn":
			f.AssignMTMSN = true
		default:
			return f, errors.Errorf("unknown disposition flag %q", name)
		}
	}
	return f, nil
}
