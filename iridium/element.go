package iridium

import (
	"encoding/binary"
	"fmt"
)

// IEI is an information element identifier.
type IEI byte

// Information element identifiers, DirectIP table 5-1.
const (
	IEIMOHeader       IEI = 0x01
	IEIMOPayload      IEI = 0x02
	IEIMOLocation     IEI = 0x03
	IEIMOConfirmation IEI = 0x05
	IEIMTHeader       IEI = 0x41
	IEIMTPayload      IEI = 0x42
	IEIMTConfirmation IEI = 0x44
	IEIMTPriority     IEI = 0x46
)

func (i IEI) String() string {
	switch i {
	case IEIMOHeader:
		return "MO header"
	case IEIMOPayload:
		return "MO payload"
	case IEIMOLocation:
		return "MO location"
	case IEIMOConfirmation:
		return "MO confirmation"
	case IEIMTHeader:
		return "MT header"
	case IEIMTPayload:
		return "MT payload"
	case IEIMTConfirmation:
		return "MT confirmation"
	case IEIMTPriority:
		return "MT priority"
	}
	return fmt.Sprintf("IEI 0x%02x", byte(i))
}

// Direction tells whether a message was sent by or to a modem.
type Direction int

const (
	MobileOriginated Direction = iota
	MobileTerminated
)

func (d Direction) String() string {
	if d == MobileTerminated {
		return "MT"
	}
	return "MO"
}

// Direction of the messages this element may appear in.
func (i IEI) Direction() Direction {
	if i&0x40 != 0 {
		return MobileTerminated
	}
	return MobileOriginated
}

// elementHeaderLength is the IEI byte plus the two length bytes.
const elementHeaderLength = 3

// InformationElement is one of MOHeader, MOPayload, MOLocation, MOConfirmation, MTHeader,
// MTPayload, MTConfirmation or MTPriority. The set is closed: the unexported methods keep
// other packages from adding kinds that decodeElement would not know about.
type InformationElement interface {
	IEI() IEI
	// Len is the body length, without the 3 byte element header.
	Len() int

	validate() error
	putBody(b []byte)
}

// EncodedLen is the number of bytes ie takes on the wire.
func EncodedLen(ie InformationElement) int {
	return elementHeaderLength + ie.Len()
}

// EncodeElement returns the wire bytes of a single element.
func EncodeElement(ie InformationElement) ([]byte, error) {
	if err := ie.validate(); err != nil {
		return nil, err
	}
	b := make([]byte, EncodedLen(ie))
	putElement(b, ie)
	return b, nil
}

// putElement writes ie into b, which must hold EncodedLen(ie) bytes. ie must be valid.
func putElement(b []byte, ie InformationElement) int {
	b[0] = byte(ie.IEI())
	binary.BigEndian.PutUint16(b[1:], uint16(ie.Len()))
	ie.putBody(b[elementHeaderLength : elementHeaderLength+ie.Len()])
	return EncodedLen(ie)
}

// DecodeElement decodes the body of the element tagged iei.
func DecodeElement(iei IEI, body []byte) (InformationElement, error) {
	var (
		ie  InformationElement
		err error
	)
	switch iei {
	case IEIMOHeader:
		ie, err = decodeMOHeader(body)
	case IEIMOPayload:
		ie, err = decodeMOPayload(body)
	case IEIMOLocation:
		ie, err = decodeMOLocation(body)
	case IEIMOConfirmation:
		ie, err = decodeMOConfirmation(body)
	case IEIMTHeader:
		ie, err = decodeMTHeader(body)
	case IEIMTPayload:
		ie, err = decodeMTPayload(body)
	case IEIMTConfirmation:
		ie, err = decodeMTConfirmation(body)
	case IEIMTPriority:
		ie, err = decodeMTPriority(body)
	default:
		return nil, invalidElement(iei, "unknown identifier")
	}
	if err != nil {
		return nil, err
	}
	return ie, nil
}

func checkFixedLength(iei IEI, body []byte, want int) error {
	if len(body) != want {
		return invalidElement(iei, "length %d, want %d", len(body), want)
	}
	return nil
}
