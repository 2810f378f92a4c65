package directip

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"sbd/gogroup"
	"sbd/iridium"
	"sbd/log"
	"sbd/storage"

	"github.com/grafov/bcast"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"
)

var tracer = log.GetTracer("directip")

// ErrShutdownTimeout is returned by Shutdown when sessions had to be canceled.
var ErrShutdownTimeout = errors.New("directip: shutdown timed out, sessions canceled")

type Config struct {
	// IdleTimeout bounds the wait for the first byte of a session.
	IdleTimeout time.Duration
	// SessionTimeout bounds the whole session once the first byte arrived.
	SessionTimeout time.Duration
	// MaxConnections caps concurrent sessions, 0 for no cap.
	MaxConnections int
	// Confirm sends an MO confirmation before closing a complete session.
	Confirm bool
	// OutcomeBuffer is how many outcomes may wait for the broadcaster before new ones are dropped.
	OutcomeBuffer int
}

// Outcome is published once per session, when it reaches a final state.
type Outcome struct {
	SessionID  string
	RemoteAddr string
	State      State
	// Message is set for complete sessions.
	Message *iridium.Message
	// Err is why the session failed, or the storage error of a complete session.
	Err      error
	Duration time.Duration
}

// Stored reports whether the message of the session reached storage.
func (o Outcome) Stored() bool {
	return o.State == Complete && o.Err == nil
}

// Server accepts DirectIP MO connections and hands every complete message to a store.
type Server struct {
	cfg   Config
	store storage.Store

	listener net.Listener
	sessions gogroup.GoGroup
	inflight sync.WaitGroup

	// mu guards closed against the accept loop registering new sessions.
	mu     sync.Mutex
	closed bool

	outcomes  chan Outcome
	forwarded chan struct{}
	sent      int64
	group     *bcast.Group
	publisher *bcast.Member
}

// NewServer starts the outcome broadcaster; Shutdown stops it.
func NewServer(cfg Config, store storage.Store) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		sessions:  gogroup.New(nil, "directip-sessions"),
		outcomes:  make(chan Outcome, cfg.OutcomeBuffer),
		forwarded: make(chan struct{}),
		group:     bcast.NewGroup(),
	}
	s.sessions.ErrCallback(func(err error) {
		if pe, ok := err.(gogroup.PanicError); ok {
			log.Error("directip: panic in session: %v\n%v", pe.Msg, pe.Stack)
			return
		}
		log.Error("directip: session: %v", err)
	})
	go s.group.Broadcast()
	s.publisher = s.group.Join()
	go s.forward()
	return s
}

// Listen binds the DirectIP port. Use Serve to start accepting.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "directip listen")
	}
	if s.cfg.MaxConnections > 0 {
		l = netutil.LimitListener(l, s.cfg.MaxConnections)
	}
	s.listener = l
	log.Info("directip: listening on %v", l.Addr())
	return nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Subscribe returns a member receiving every Outcome on its In channel; subscribe before
// Serve. Outcomes of different sessions may arrive in any order. Members must keep
// receiving until Shutdown returned, then leave with Unsubscribe.
func (s *Server) Subscribe() *bcast.Member {
	return s.group.Join()
}

// Forwarded is how many outcomes were handed to the subscribers so far. It no longer
// changes once Shutdown returned.
func (s *Server) Forwarded() int {
	return int(atomic.LoadInt64(&s.sent))
}

// Unsubscribe closes a member once Shutdown returned and takes the outcomes still in
// flight to it. received is how many the member already took; Unsubscribe gives up on
// the rest after timeout.
func (s *Server) Unsubscribe(member *bcast.Member, received int, timeout time.Duration) []Outcome {
	member.Close()
	var (
		rest  []Outcome
		timer = time.NewTimer(timeout)
	)
	defer timer.Stop()
	for ; received < s.Forwarded(); received++ {
		select {
		case v := <-member.In:
			if o, ok := v.(Outcome); ok {
				rest = append(rest, o)
			}
		case <-timer.C:
			log.Warn("directip: %d outcomes not delivered", s.Forwarded()-received)
			return rest
		}
	}
	return rest
}

// Serve accepts connections until g is canceled or Shutdown is called. In-flight sessions
// are not canceled with g; they run until they finish or Shutdown gives up on them.
func (s *Server) Serve(g gogroup.GoGroup) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-g.Done():
			s.closeListener()
		case <-stop:
		}
	}()

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else if delay *= 2; delay > time.Second {
					delay = time.Second
				}
				log.Warn("directip: accept: %v; retrying in %v", err, delay)
				time.Sleep(delay)
				continue
			}
			return errors.Wrap(err, "directip accept")
		}
		delay = 0
		if !s.track() {
			conn.Close()
			return nil
		}
		id := uuid.New()
		sg := s.sessions.Child(id)
		sg.Go(func(sg gogroup.GoGroup) error {
			defer s.inflight.Done()
			defer sg.Cancel(nil)
			s.handle(sg, id, conn)
			return nil
		})
	}
}

// track registers a session unless the server is shutting down.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
}

// Shutdown stops accepting and waits for in-flight sessions. Sessions still running after
// timeout are canceled, which fails them, and ErrShutdownTimeout is returned. The outcome
// broadcaster stops once every outcome was forwarded.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.closeListener()

	var err error
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("directip: shutdown timed out, canceling sessions")
		s.sessions.Cancel(nil)
		<-done
		err = ErrShutdownTimeout
	}
	s.sessions.Cancel(nil)
	s.sessions.Wait()

	close(s.outcomes)
	<-s.forwarded
	// Members are removed only once the broadcaster stopped reading them.
	s.group.Close()
	s.publisher.Close()
	return err
}

// forward moves outcomes from the bounded buffer to the broadcast group.
func (s *Server) forward() {
	defer close(s.forwarded)
	for o := range s.outcomes {
		s.publisher.Send(o)
		atomic.AddInt64(&s.sent, 1)
	}
}

func (s *Server) publish(o Outcome) {
	select {
	case s.outcomes <- o:
	default:
		log.Warn("directip %v: outcome buffer full, dropping outcome", o.SessionID)
	}
}
