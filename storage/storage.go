// Package storage defines where decoded SBD messages go once a DirectIP session completes.
package storage

import (
	"context"
	"time"

	"sbd/iridium"
	"sbd/util/clock"

	"github.com/hashicorp/go-multierror"
)

// Store persists one message. id is unique per session and is the key stores index by.
type Store interface {
	Store(ctx context.Context, id string, m *iridium.Message) error
}

// Func adapts a function to Store.
type Func func(ctx context.Context, id string, m *iridium.Message) error

func (f Func) Store(ctx context.Context, id string, m *iridium.Message) error {
	return f(ctx, id, m)
}

// Record is a stored message with the fields stores index it by.
type Record struct {
	ID        string
	IMEI      string
	Direction iridium.Direction
	// Received is the MO time of session, or the store's clock for MT messages and MO
	// headers without one.
	Received time.Time
	Message  *iridium.Message
}

func NewRecord(id string, m *iridium.Message, clk clock.C) *Record {
	rec := &Record{
		ID:        id,
		IMEI:      m.IMEI().String(),
		Direction: m.Direction(),
		Message:   m,
	}
	if h, ok := m.MOHeader(); ok && !h.TimeOfSession.IsZero() {
		rec.Received = h.TimeOfSession
	} else {
		rec.Received = clk.Now()
	}
	return rec
}

type multi []Store

// Multi stores every message in each of stores, in order. All stores are tried even when
// one fails; the failures are returned together.
func Multi(stores ...Store) Store {
	return multi(stores)
}

func (ms multi) Store(ctx context.Context, id string, m *iridium.Message) error {
	var result *multierror.Error
	for _, s := range ms {
		if err := s.Store(ctx, id, m); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
