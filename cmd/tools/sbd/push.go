package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"sbd/directip"
	"sbd/gogroup"
)

func push(g gogroup.GoGroup, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("push", flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:10800", "DirectIP listener to push to")
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout of each push")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths, err := expand(fs.Args())
	if err != nil {
		return err
	}
	for _, path := range paths {
		// sent as is, so broken messages can be pushed too
		raw, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(g, *timeout)
		c, confirmed, err := directip.Push(ctx, *addr, raw)
		cancel()
		switch {
		case err != nil:
			return err
		case !confirmed:
			fmt.Fprintf(w, "%v: sent, no confirmation\n", path)
		case c.Accepted:
			fmt.Fprintf(w, "%v: accepted\n", path)
		default:
			fmt.Fprintf(w, "%v: rejected\n", path)
		}
	}
	return nil
}
