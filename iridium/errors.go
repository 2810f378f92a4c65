package iridium

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidIMEI is returned when an IMEI is not made of 15 ASCII digits.
	ErrInvalidIMEI = errors.New("IMEI is not 15 numeric characters")
	// ErrInvalidInformationElement covers unknown tags, bad lengths and bad field values.
	ErrInvalidInformationElement = errors.New("invalid information element")
	// ErrMissingMOHeader is returned for a mobile originated message without a header.
	ErrMissingMOHeader = errors.New("missing mobile originated header")
	// ErrMissingMOPayload is returned for a mobile originated message without a payload.
	ErrMissingMOPayload = errors.New("missing mobile originated payload")
	// ErrMissingMTHeader is returned for a mobile terminated message without a header.
	ErrMissingMTHeader = errors.New("missing mobile terminated header")
	// ErrMissingMTPayload is returned for a mobile terminated message without a payload.
	ErrMissingMTPayload = errors.New("missing mobile terminated payload")
	// ErrOversized does not say how big the message was, only that it was too big.
	ErrOversized = errors.New("oversized message")
	// ErrTrailingData is returned by Unmarshal when bytes follow the declared frame.
	ErrTrailingData = errors.New("trailing data after message")
)

// InvalidProtocolRevisionError carries the revision byte that was rejected.
type InvalidProtocolRevisionError struct {
	Revision byte
}

func (e *InvalidProtocolRevisionError) Error() string {
	return fmt.Sprintf("invalid protocol revision number: %d", e.Revision)
}

// UndersizedError is returned when fewer bytes than a minimal frame are available.
type UndersizedError struct {
	Size int
}

func (e *UndersizedError) Error() string {
	return fmt.Sprintf("undersized message: %d bytes", e.Size)
}

// IOError wraps a failure of the underlying stream.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return "io error " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// Cause lets errors.Cause from github.com/pkg/errors see through the wrapper.
func (e *IOError) Cause() error { return e.Err }

func invalidElement(iei IEI, format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInformationElement, "%v: "+format, append([]interface{}{iei}, args...)...)
}
