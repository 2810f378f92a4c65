// sbd inspects stored SBD messages and talks DirectIP for testing.
//
//	sbd [flags] info [-json|-dump] FILE...
//	sbd [flags] list [-follow] ROOT
//	sbd [flags] push -addr HOST:PORT FILE...
//	sbd [flags] send -gss HOST:PORT -imei IMEI -id N [-flags ...] [-priority N] (-text S | -file F)
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"sbd/gogroup"
	"sbd/libmain"

	"github.com/mitchellh/go-homedir"
)

type command struct {
	usage string
	run   func(g gogroup.GoGroup, w io.Writer, args []string) error
}

var commands = map[string]command{
	"info": {"[-json|-dump] FILE...", info},
	"list": {"[-follow] ROOT", list},
	"push": {"-addr HOST:PORT FILE...", push},
	"send": {"-gss HOST:PORT -imei IMEI -id N [-flags f,...] [-priority N] (-text S | -file F)", send},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %v [flags] COMMAND [args]\n\ncommands:\n", os.Args[0])
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %v %v\n", name, commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "\nflags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	libmain.Main(func(g gogroup.GoGroup) error {
		args := flag.Args()
		if len(args) == 0 {
			usage()
			os.Exit(2)
		}
		cmd, ok := commands[args[0]]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
			usage()
			os.Exit(2)
		}
		if err := cmd.run(g, os.Stdout, args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "sbd %v: %v\n", args[0], err)
			os.Exit(1)
		}
		g.Cancel(nil)
		return nil
	})
}

// expand resolves ~ in each path.
func expand(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		e, err := homedir.Expand(p)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
