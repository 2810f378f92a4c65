// Package directip receives Iridium DirectIP MO messages and sends MT messages.
//
// The gateway opens one TCP connection per MO message, writes the message and waits for
// the receiver to close it, optionally after an MO confirmation. Each connection is a
// session that accumulates bytes until the frame announced by its preamble is complete.
package directip

import (
	"io"

	"sbd/iridium"
)

// State of a session. Complete and Failed are final.
type State int

const (
	AwaitingHeader State = iota
	AccumulatingBody
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingHeader:
		return "awaiting header"
	case AccumulatingBody:
		return "accumulating body"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// session is the byte accumulator of one connection. It is owned by a single goroutine.
type session struct {
	state State
	buf   []byte
	// frameLen is the preamble plus the announced overall length, known from AccumulatingBody on.
	frameLen int
}

// feed adds a chunk of any size. It returns the message once the frame is complete, and
// an error as soon as the bytes so far cannot be the start of a valid message. After
// either, the session is final and feed must not be called again.
func (s *session) feed(chunk []byte) (*iridium.Message, error) {
	s.buf = append(s.buf, chunk...)

	if s.state == AwaitingHeader {
		if len(s.buf) >= 1 {
			if err := iridium.CheckRevision(s.buf[0]); err != nil {
				return nil, s.fail(err)
			}
		}
		if len(s.buf) < iridium.PreambleLength {
			return nil, nil
		}
		length, err := iridium.ParseOverallLength(s.buf[1:iridium.PreambleLength])
		if err != nil {
			return nil, s.fail(err)
		}
		s.frameLen = iridium.PreambleLength + length
		s.state = AccumulatingBody
	}

	if len(s.buf) < s.frameLen {
		return nil, nil
	}
	m, err := iridium.Unmarshal(s.buf)
	if err != nil {
		return nil, s.fail(err)
	}
	s.state = Complete
	return m, nil
}

// eof is the error for a connection closed by the peer before the frame was complete.
func (s *session) eof() error {
	if s.state == AwaitingHeader {
		return s.fail(&iridium.UndersizedError{Size: len(s.buf)})
	}
	return s.fail(&iridium.IOError{Op: "reading message body", Err: io.ErrUnexpectedEOF})
}

func (s *session) fail(err error) error {
	s.state = Failed
	return err
}

// received is the number of bytes fed so far.
func (s *session) received() int {
	return len(s.buf)
}
