package directip

import (
	"io"
	"net"
	"time"

	"sbd/gogroup"
	"sbd/iridium"
	"sbd/log"

	"github.com/armon/go-metrics"
)

const readSize = 512

// handle runs one session to a final state and publishes its outcome. The connection is
// closed on return.
func (s *Server) handle(g gogroup.GoGroup, id string, conn net.Conn) {
	start := time.Now()
	defer conn.Close()
	metrics.IncrCounter([]string{"directip", "sessions", "accepted"}, 1)

	// Canceling g fails a blocked read.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-g.Done():
			conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()

	o := Outcome{SessionID: id, RemoteAddr: conn.RemoteAddr().String()}
	tracer.Logf("%v: session from %v", id, o.RemoteAddr)

	m, deadline, err := s.receive(g, conn)
	if err != nil {
		o.State, o.Err = Failed, err
		metrics.IncrCounter([]string{"directip", "sessions", "failed"}, 1)
		log.Error("directip %v from %v: %v", id, o.RemoteAddr, err)
	} else {
		o.State, o.Message = Complete, m
		metrics.IncrCounter([]string{"directip", "sessions", "completed"}, 1)
		o.Err = s.store.Store(g, id, m)
		if o.Err != nil {
			log.Error("directip %v from %v: storing %v: %v", id, o.RemoteAddr, m, o.Err)
		} else {
			metrics.IncrCounter([]string{"directip", "sessions", "stored"}, 1)
			log.Debug("directip %v: stored %v", id, m)
		}
		if s.cfg.Confirm {
			s.confirm(conn, id, deadline, o.Err == nil)
		}
	}

	metrics.MeasureSince([]string{"directip", "session"}, start)
	o.Duration = time.Since(start)
	s.publish(o)
}

// receive reads until the session is complete or failed. The idle timeout applies until
// the first byte, the session timeout from then on.
func (s *Server) receive(g gogroup.GoGroup, conn net.Conn) (*iridium.Message, time.Time, error) {
	var (
		sess     session
		deadline time.Time
		buf      = make([]byte, readSize)
	)
	if s.cfg.IdleTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if deadline.IsZero() {
				deadline = time.Now().Add(s.cfg.SessionTimeout)
				if s.cfg.SessionTimeout > 0 {
					conn.SetReadDeadline(deadline)
				} else {
					conn.SetReadDeadline(time.Time{})
				}
			}
			tracer.Logf("read %d bytes, %d so far", n, sess.received()+n)
			m, ferr := sess.feed(buf[:n])
			if ferr != nil || m != nil {
				return m, deadline, ferr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, deadline, sess.eof()
			}
			return nil, deadline, s.readError(g, &sess, err)
		}
	}
}

func (s *Server) readError(g gogroup.GoGroup, sess *session, err error) error {
	sess.fail(err)
	op := "reading message"
	switch {
	case g.Canceled():
		op = "reading message, session canceled"
	case isTimeout(err) && sess.received() == 0:
		op = "waiting for the first byte"
	case isTimeout(err):
		op = "reading message, session timed out"
	}
	return &iridium.IOError{Op: op, Err: err}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// confirm writes an MO confirmation. Failing to write it does not change the outcome; the
// message is already stored.
func (s *Server) confirm(conn net.Conn, id string, deadline time.Time, accepted bool) {
	b, err := iridium.MarshalConfirmation(iridium.MOConfirmation{Accepted: accepted})
	if err != nil {
		log.Error("directip %v: %v", id, err)
		return
	}
	if s.cfg.SessionTimeout > 0 {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(b); err != nil {
		log.Warn("directip %v: writing confirmation: %v", id, err)
	}
}
