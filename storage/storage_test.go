package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"sbd/iridium"
	"sbd/storage/mockstore"
	"sbd/util/clock"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var sessionTime = time.Date(2019, 3, 4, 10, 11, 12, 0, time.UTC)

func moMessage(t *testing.T, momsn uint16, cdr uint32) *iridium.Message {
	m, err := iridium.NewMessage(
		iridium.MOHeader{
			CDRReference:  cdr,
			IMEI:          iridium.MustParseIMEI("300234010123450"),
			MOMSN:         momsn,
			TimeOfSession: sessionTime,
		},
		iridium.MOPayload{Data: []byte("test")},
	)
	require.NoError(t, err)
	return m
}

func mtMessage(t *testing.T) *iridium.Message {
	m, err := iridium.NewMessage(
		iridium.MTHeader{ClientMessageID: 1, IMEI: iridium.MustParseIMEI("300234010123450")},
		iridium.MTPayload{Data: []byte("test")},
	)
	require.NoError(t, err)
	return m
}

func TestNewRecord(t *testing.T) {
	clk := &clock.Mock{MockNow: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}

	mo := NewRecord("a", moMessage(t, 1, 2), clk)
	assert.Equal(t, "300234010123450", mo.IMEI)
	assert.Equal(t, iridium.MobileOriginated, mo.Direction)
	assert.Equal(t, sessionTime, mo.Received)

	mt := NewRecord("b", mtMessage(t), clk)
	assert.Equal(t, iridium.MobileTerminated, mt.Direction)
	assert.Equal(t, clk.MockNow, mt.Received)

	untimed, err := iridium.NewMessage(
		iridium.MOHeader{IMEI: iridium.MustParseIMEI("300234010123450")},
		iridium.MOPayload{Data: []byte("test")},
	)
	require.NoError(t, err)
	assert.Equal(t, clk.MockNow, NewRecord("c", untimed, clk).Received)
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	m := moMessage(t, 1, 1)

	first, second, third := &mockstore.Store{}, &mockstore.Store{}, &mockstore.Store{}
	first.On("Store", ctx, "s1", m).Return(errors.New("disk full"))
	second.On("Store", ctx, "s1", m).Return(nil)
	third.On("Store", ctx, "s1", m).Return(errors.New("redis down"))

	err := Multi(first, second, third).Store(ctx, "s1", m)
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 2)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertExpectations(t)

	assert.NoError(t, Multi(second).Store(ctx, "s1", m))
	assert.NoError(t, Multi().Store(ctx, "s1", m))
}

func TestDedup(t *testing.T) {
	ctx := context.Background()
	next := &mockstore.Store{}
	next.On("Store", ctx, mock.Anything, mock.Anything).Return(nil)

	s, err := Dedup(next, 2)
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, "s1", moMessage(t, 1, 100)))
	// gateway retry of the same session
	require.NoError(t, s.Store(ctx, "s2", moMessage(t, 1, 100)))
	// same MOMSN after a wrap, different session
	require.NoError(t, s.Store(ctx, "s3", moMessage(t, 1, 101)))
	next.AssertNumberOfCalls(t, "Store", 2)

	// MT messages are never deduplicated
	require.NoError(t, s.Store(ctx, "s4", mtMessage(t)))
	require.NoError(t, s.Store(ctx, "s5", mtMessage(t)))
	next.AssertNumberOfCalls(t, "Store", 4)

	// the oldest key is evicted once size messages follow it
	require.NoError(t, s.Store(ctx, "s6", moMessage(t, 2, 102)))
	require.NoError(t, s.Store(ctx, "s7", moMessage(t, 1, 100)))
	next.AssertNumberOfCalls(t, "Store", 6)
}

func TestDedupRetriesFailures(t *testing.T) {
	ctx := context.Background()
	next := &mockstore.Store{}
	next.On("Store", ctx, "s1", mock.Anything).Return(errors.New("unavailable")).Once()
	next.On("Store", ctx, "s2", mock.Anything).Return(nil).Once()

	s, err := Dedup(next, 16)
	require.NoError(t, err)
	assert.Error(t, s.Store(ctx, "s1", moMessage(t, 5, 5)))
	assert.NoError(t, s.Store(ctx, "s2", moMessage(t, 5, 5)))
	next.AssertExpectations(t)

	_, err = Dedup(next, 0)
	assert.Error(t, err)
}

func TestDedupConcurrentCopies(t *testing.T) {
	tt := []struct {
		name   string
		fail   bool
		stores int32
	}{
		{"first stored", false, 1},
		{"first failed", true, 2},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			entered := make(chan struct{})
			proceed := make(chan struct{})
			next := Func(func(context.Context, string, *iridium.Message) error {
				if atomic.AddInt32(&calls, 1) == 1 {
					close(entered)
					<-proceed
					if tc.fail {
						return errors.New("unavailable")
					}
				}
				return nil
			})
			s, err := Dedup(next, 16)
			require.NoError(t, err)
			ctx := context.Background()
			m1, m2 := moMessage(t, 7, 7), moMessage(t, 7, 7)

			first := make(chan error, 1)
			go func() { first <- s.Store(ctx, "s1", m1) }()
			<-entered
			second := make(chan error, 1)
			go func() { second <- s.Store(ctx, "s2", m2) }()
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "the copy waits for the first")
			close(proceed)

			assert.Equal(t, tc.fail, <-first != nil)
			assert.NoError(t, <-second)
			assert.Equal(t, tc.stores, atomic.LoadInt32(&calls))
		})
	}
}

func TestDedupWaitHonoursContext(t *testing.T) {
	proceed := make(chan struct{})
	defer close(proceed)
	entered := make(chan struct{})
	next := Func(func(context.Context, string, *iridium.Message) error {
		close(entered)
		<-proceed
		return nil
	})
	s, err := Dedup(next, 16)
	require.NoError(t, err)

	m := moMessage(t, 8, 8)
	go s.Store(context.Background(), "s1", m)
	<-entered
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, s.Store(ctx, "s2", m))
}

func TestFunc(t *testing.T) {
	var got string
	s := Func(func(_ context.Context, id string, _ *iridium.Message) error {
		got = id
		return nil
	})
	require.NoError(t, s.Store(context.Background(), "s1", moMessage(t, 1, 1)))
	assert.Equal(t, "s1", got)
}
