// Package iridium encodes and decodes Iridium SBD DirectIP messages.
//
// A message is a protocol revision byte, a big endian overall length and a sequence of
// information elements, each one an identifier byte, a big endian length and a body.
package iridium

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	// ProtocolRevision is the only revision DirectIP defines.
	ProtocolRevision byte = 1

	// PreambleLength is the revision byte plus the overall length.
	PreambleLength = 3

	// MaxOverallLength is the overall length of the largest well formed message: an MO
	// header, a full MO payload, a location and a confirmation.
	MaxOverallLength = elementHeaderLength + moHeaderLength +
		elementHeaderLength + MaxMOPayloadLength +
		elementHeaderLength + moLocationLength +
		elementHeaderLength + moConfirmationLength
)

// Message is a decoded SBD message. Elements keep their wire order.
type Message struct {
	Elements []InformationElement
}

// NewMessage builds a message from elements and validates it.
func NewMessage(elements ...InformationElement) (*Message, error) {
	m := &Message{Elements: elements}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Direction is decided by the first element. An empty message counts as MO.
func (m *Message) Direction() Direction {
	if len(m.Elements) == 0 {
		return MobileOriginated
	}
	return m.Elements[0].IEI().Direction()
}

// OverallLength is the value of the length field that follows the revision byte.
func (m *Message) OverallLength() int {
	n := 0
	for _, ie := range m.Elements {
		n += EncodedLen(ie)
	}
	return n
}

// Validate checks every element, then that the message holds one header and one payload
// of a single direction, and no element kind twice.
func (m *Message) Validate() error {
	for _, ie := range m.Elements {
		if err := ie.validate(); err != nil {
			return err
		}
	}
	if err := checkStructure(m.Elements); err != nil {
		return err
	}
	return checkMandatory(m.Elements)
}

func checkStructure(elements []InformationElement) error {
	if len(elements) == 0 {
		return nil
	}
	dir := elements[0].IEI().Direction()
	seen := make(map[IEI]bool, len(elements))
	for _, ie := range elements {
		iei := ie.IEI()
		if iei.Direction() != dir {
			return invalidElement(iei, "not allowed in a %v message", dir)
		}
		if seen[iei] {
			return invalidElement(iei, "repeated")
		}
		seen[iei] = true
	}
	return nil
}

func checkMandatory(elements []InformationElement) error {
	var header, payload bool
	for _, ie := range elements {
		switch ie.(type) {
		case MOHeader, MTHeader:
			header = true
		case MOPayload, MTPayload:
			payload = true
		}
	}
	mt := len(elements) > 0 && elements[0].IEI().Direction() == MobileTerminated
	switch {
	case !header && mt:
		return ErrMissingMTHeader
	case !header:
		return ErrMissingMOHeader
	case !payload && mt:
		return ErrMissingMTPayload
	case !payload:
		return ErrMissingMOPayload
	}
	return nil
}

// Element returns the first element tagged iei.
func (m *Message) Element(iei IEI) (InformationElement, bool) {
	for _, ie := range m.Elements {
		if ie.IEI() == iei {
			return ie, true
		}
	}
	return nil, false
}

func (m *Message) MOHeader() (MOHeader, bool) {
	ie, ok := m.Element(IEIMOHeader)
	if !ok {
		return MOHeader{}, false
	}
	return ie.(MOHeader), true
}

func (m *Message) MTHeader() (MTHeader, bool) {
	ie, ok := m.Element(IEIMTHeader)
	if !ok {
		return MTHeader{}, false
	}
	return ie.(MTHeader), true
}

func (m *Message) MOLocation() (MOLocation, bool) {
	ie, ok := m.Element(IEIMOLocation)
	if !ok {
		return MOLocation{}, false
	}
	return ie.(MOLocation), true
}

// IMEI of the modem the message came from or goes to.
func (m *Message) IMEI() IMEI {
	if h, ok := m.MOHeader(); ok {
		return h.IMEI
	}
	if h, ok := m.MTHeader(); ok {
		return h.IMEI
	}
	return IMEI{}
}

// Payload returns the payload bytes, nil if there is no payload element.
func (m *Message) Payload() []byte {
	for _, ie := range m.Elements {
		switch p := ie.(type) {
		case MOPayload:
			return p.Data
		case MTPayload:
			return p.Data
		}
	}
	return nil
}

func (m *Message) String() string {
	parts := make([]string, 0, len(m.Elements))
	for _, ie := range m.Elements {
		parts = append(parts, fmt.Sprintf("%v(%d)", ie.IEI(), ie.Len()))
	}
	return fmt.Sprintf("%v message from %v [%s]", m.Direction(), m.IMEI(), strings.Join(parts, " "))
}

// MarshalBinary encodes the message. Nothing is returned unless the whole message is valid.
func (m *Message) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return marshalElements(m.Elements)
}

// WriteTo writes the encoded message to w in a single Write.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	if err != nil {
		return int64(n), &IOError{Op: "writing message", Err: err}
	}
	return int64(n), nil
}

func marshalElements(elements []InformationElement) ([]byte, error) {
	length := 0
	for _, ie := range elements {
		length += EncodedLen(ie)
	}
	if length > MaxOverallLength {
		return nil, ErrOversized
	}
	b := make([]byte, PreambleLength+length)
	b[0] = ProtocolRevision
	binary.BigEndian.PutUint16(b[1:], uint16(length))
	off := PreambleLength
	for _, ie := range elements {
		off += putElement(b[off:], ie)
	}
	return b, nil
}

// CheckRevision fails for anything but ProtocolRevision.
func CheckRevision(rev byte) error {
	if rev != ProtocolRevision {
		return &InvalidProtocolRevisionError{Revision: rev}
	}
	return nil
}

// ParseOverallLength reads the two length bytes of the preamble and rejects lengths no
// valid message can have.
func ParseOverallLength(b []byte) (int, error) {
	length := int(binary.BigEndian.Uint16(b))
	if length > MaxOverallLength {
		return 0, ErrOversized
	}
	return length, nil
}

// Decode reads one message from r. It reads the revision byte on its own and stops there
// if the revision is wrong; otherwise it reads exactly the declared length and no more.
func Decode(r io.Reader) (*Message, error) {
	body, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeBody(body)
}

// Unmarshal decodes b, which must hold exactly one message.
func Unmarshal(b []byte) (*Message, error) {
	r := bytes.NewReader(b)
	m, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, errors.Wrapf(ErrTrailingData, "%d bytes", r.Len())
	}
	return m, nil
}

// DecodeBody decodes the elements that follow the preamble.
func DecodeBody(body []byte) (*Message, error) {
	elements, err := parseElements(body)
	if err != nil {
		return nil, err
	}
	if err := checkStructure(elements); err != nil {
		return nil, err
	}
	if err := checkMandatory(elements); err != nil {
		return nil, err
	}
	return &Message{Elements: elements}, nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var pre [PreambleLength]byte
	if n, err := io.ReadFull(r, pre[:1]); err != nil {
		return nil, preambleError(n, err)
	}
	if err := CheckRevision(pre[0]); err != nil {
		return nil, err
	}
	if n, err := io.ReadFull(r, pre[1:]); err != nil {
		return nil, preambleError(1+n, err)
	}
	length, err := ParseOverallLength(pre[1:])
	if err != nil {
		return nil, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &IOError{Op: "reading message body", Err: err}
	}
	return body, nil
}

func preambleError(n int, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &UndersizedError{Size: n}
	}
	return &IOError{Op: "reading message preamble", Err: err}
}

func parseElements(body []byte) ([]InformationElement, error) {
	var elements []InformationElement
	for off := 0; off < len(body); {
		iei := IEI(body[off])
		if len(body)-off < elementHeaderLength {
			return nil, invalidElement(iei, "truncated element header at offset %d", off)
		}
		n := int(binary.BigEndian.Uint16(body[off+1:]))
		start := off + elementHeaderLength
		if start+n > len(body) {
			return nil, invalidElement(iei, "length %d overruns the message at offset %d", n, off)
		}
		ie, err := DecodeElement(iei, body[start:start+n])
		if err != nil {
			return nil, err
		}
		elements = append(elements, ie)
		off = start + n
	}
	return elements, nil
}

// Confirmation elements make up a message on their own.
type Confirmation interface {
	InformationElement
	confirmation()
}

func (MOConfirmation) confirmation() {}
func (MTConfirmation) confirmation() {}

// MarshalConfirmation encodes a message holding only c.
func MarshalConfirmation(c Confirmation) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return marshalElements([]InformationElement{c})
}

// DecodeMOConfirmation reads the confirmation a DirectIP MO receiver sends back.
func DecodeMOConfirmation(r io.Reader) (MOConfirmation, error) {
	ie, err := decodeConfirmation(r, IEIMOConfirmation)
	if err != nil {
		return MOConfirmation{}, err
	}
	return ie.(MOConfirmation), nil
}

// DecodeMTConfirmation reads the gateway's answer to an MT message.
func DecodeMTConfirmation(r io.Reader) (MTConfirmation, error) {
	ie, err := decodeConfirmation(r, IEIMTConfirmation)
	if err != nil {
		return MTConfirmation{}, err
	}
	return ie.(MTConfirmation), nil
}

func decodeConfirmation(r io.Reader, want IEI) (InformationElement, error) {
	body, err := readFrame(r)
	if err != nil {
		return nil, err
	}
	elements, err := parseElements(body)
	if err != nil {
		return nil, err
	}
	if len(elements) != 1 || elements[0].IEI() != want {
		return nil, invalidElement(want, "want a message holding only this element, got %d elements", len(elements))
	}
	return elements[0], nil
}
