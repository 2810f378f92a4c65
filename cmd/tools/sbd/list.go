package main

import (
	"flag"
	"fmt"
	"io"
	"sync"

	"sbd/gogroup"
	"sbd/storage/file"

	"github.com/pkg/errors"
)

func list(g gogroup.GoGroup, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	follow := fs.Bool("follow", false, "Keep printing messages stored from now on, until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("want exactly one ROOT")
	}
	roots, err := expand(fs.Args())
	if err != nil {
		return err
	}
	root := roots[0]

	var (
		mu      sync.Mutex
		printed = make(map[string]bool)
	)
	show := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if !printed[path] {
			printed[path] = true
			fmt.Fprintln(w, path)
		}
	}

	// Watching starts first so that nothing stored during discovery is missed.
	if *follow {
		if err := file.Watch(g, root, show); err != nil {
			return err
		}
	}
	paths, err := file.Discover(root)
	if err != nil {
		return err
	}
	for _, path := range paths {
		show(path)
	}
	if *follow {
		<-g.Done()
	}
	return nil
}
