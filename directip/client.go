package directip

import (
	"context"
	"net"
	"time"

	"sbd/iridium"
	"sbd/log"

	"github.com/pkg/errors"
)

var traceMT = log.GetTracer("MobileTerminated")

// SendMT delivers an MT message to the gateway at addr and returns the gateway's
// confirmation. The deadline of ctx bounds dialing, writing and reading.
func SendMT(ctx context.Context, addr string, m *iridium.Message) (iridium.MTConfirmation, error) {
	if m.Direction() != iridium.MobileTerminated {
		return iridium.MTConfirmation{}, errors.Wrap(iridium.ErrMissingMTHeader, "send mt")
	}
	raw, err := m.MarshalBinary()
	if err != nil {
		return iridium.MTConfirmation{}, err
	}
	conn, release, err := dial(ctx, addr)
	if err != nil {
		return iridium.MTConfirmation{}, err
	}
	defer release()

	traceMT.Logf("sending %v to %v", m, addr)
	if _, err := conn.Write(raw); err != nil {
		return iridium.MTConfirmation{}, &iridium.IOError{Op: "writing mt message", Err: err}
	}
	c, err := iridium.DecodeMTConfirmation(conn)
	if err != nil {
		return c, err
	}
	traceMT.Logf("confirmation from %v: %v", addr, c.Status)
	return c, nil
}

// Push sends a raw MO message to a DirectIP receiver the way the gateway does, and returns
// the MO confirmation if the receiver sent one. It is meant for testing receivers.
func Push(ctx context.Context, addr string, raw []byte) (c iridium.MOConfirmation, confirmed bool, err error) {
	conn, release, err := dial(ctx, addr)
	if err != nil {
		return c, false, err
	}
	defer release()

	if _, err := conn.Write(raw); err != nil {
		return c, false, &iridium.IOError{Op: "writing mo message", Err: err}
	}
	conn.CloseWrite()
	c, err = iridium.DecodeMOConfirmation(conn)
	if err != nil {
		var u *iridium.UndersizedError
		if errors.As(err, &u) && u.Size == 0 {
			// closed without confirming
			return c, false, nil
		}
		return c, false, err
	}
	return c, true, nil
}

// dial connects to addr. Until release is called, the deadline of ctx applies to the
// connection and canceling ctx fails pending reads and writes. release closes it.
func dial(ctx context.Context, addr string) (*net.TCPConn, func(), error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dial %v", addr)
	}
	conn := c.(*net.TCPConn)
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()
	release := func() {
		close(stop)
		conn.Close()
	}
	return conn, release, nil
}
