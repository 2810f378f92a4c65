// Package gogroup runs the goroutines of a daemon as one unit.
//
// A panic in a managed goroutine is recovered and turned into a PanicError instead of
// killing the process, and a goroutine that fails can cancel the whole group so that its
// siblings stop instead of stalling on work that will never arrive.
package gogroup

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

type GoState int

const (
	GoStarted GoState = iota
	GoFinished
)

var (
	// Callback, when set, is run whenever a managed goroutine starts or completes.
	Callback func(GoState)
)

// Func is the unit of work a group runs. It should return when the group is done.
type Func func(GoGroup) error

type GoGroup interface {
	context.Context

	// Cancel this group. Try to get all the children to exit
	Cancel(error)

	// Has this group been canceled?
	Canceled() bool

	// Go runs f in a new goroutine. If f panics or returns an error the group is canceled.
	Go(f Func)

	// GoRestart runs f in a new goroutine and runs it again whenever it exits, until the
	// group is canceled. Errors and panics are reported but do not cancel the group.
	GoRestart(f Func)

	// Run f in the current goroutine, but protected from panic()s
	// bubbling up beyond this point
	Run(f Func)

	// Wait for all group threads to exit. Return all errors they threw
	Wait() []error

	// Iterate through the errors which have been thrown so far. Nil when no
	// more errors
	Error() error

	// Set a callback function to be run whenever an error is encountered
	ErrCallback(func(error))

	// Create a group which is a child context. Errors/panic()s in this child
	// do not affect the parent.
	Child(string) GoGroup

	Name() string
}

// An error converted from a recover()ed panic()
type PanicError struct {
	Msg   interface{}
	Stack string
}

func (pe PanicError) Error() string {
	if s, ok := pe.Msg.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", pe.Msg)
}

// New creates a group. A nil ctxt means context.Background.
func New(ctxt context.Context, name string) GoGroup {
	if ctxt == nil {
		ctxt = context.Background()
	}
	nctxt, cancel := context.WithCancel(ctxt)

	ret := group{
		Context: nctxt,
		name:    name,
		cancel:  cancel,
	}
	ret.ErrCallback(nil)
	return &ret
}

type group struct {
	context.Context
	sync.Mutex

	name   string
	cancel context.CancelFunc

	wg sync.WaitGroup

	errors      []error
	errCallback func(error)
}

func (g *group) Cancel(err error) {
	if err != nil {
		g.reportError(err)
	}
	g.cancel()
}

func (g *group) Canceled() bool {
	select {
	case <-g.Done():
		return true
	default:
		return false
	}
}

func (g *group) Go(f Func) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.run(f, true)
	}()
}

func (g *group) GoRestart(f Func) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for !g.Canceled() {
			g.run(f, false)
		}
	}()
}

func (g *group) Run(f Func) {
	g.wg.Add(1)
	defer g.wg.Done()
	g.run(f, true)
}

func (g *group) Name() string {
	return g.name
}

func (g *group) run(f Func, kill bool) {
	defer g.catch(kill)

	if Callback != nil {
		Callback(GoStarted)
	}
	defer func() {
		if Callback != nil {
			Callback(GoFinished)
		}
	}()

	if err := f(g); err != nil {
		if kill {
			g.Cancel(err)
		} else {
			g.reportError(err)
		}
	}
}

// Use this in a defer to catch panic()s
func (g *group) catch(kill bool) {
	if p := recover(); p != nil {
		pe := PanicError{
			Msg:   p,
			Stack: string(debug.Stack()),
		}
		if kill {
			g.Cancel(pe)
		} else {
			g.reportError(pe)
		}
	}
}

func (g *group) Wait() []error {
	g.wg.Wait()
	g.Lock()
	defer g.Unlock()
	ret := g.errors
	g.errors = nil
	return ret
}

func (g *group) Error() error {
	g.Lock()
	defer g.Unlock()
	if len(g.errors) == 0 {
		return nil
	}
	err := g.errors[0]
	g.errors = g.errors[1:]
	return err
}

func (g *group) Child(name string) GoGroup {
	if name == "" {
		name = "child"
	}
	ret := New(g, g.name+"-"+name).(*group)
	g.Lock()
	ret.errCallback = g.errCallback
	g.Unlock()
	return ret
}

func (g *group) reportError(err error) {
	g.Lock()
	cb := g.errCallback
	g.Unlock()
	cb(err)
}

// The default error handler
func (g *group) errorAppend(err error) {
	g.Lock()
	g.errors = append(g.errors, err)
	g.Unlock()
}

func (g *group) ErrCallback(f func(error)) {
	if f == nil {
		f = g.errorAppend
	}

	g.Lock()
	defer g.Unlock()
	g.errCallback = f
}
