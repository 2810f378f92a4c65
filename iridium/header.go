package iridium

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	moHeaderLength = 28
	mtHeaderLength = 21
)

// MOHeader identifies the modem and the SBD session an MO message was received in.
type MOHeader struct {
	// CDRReference is the gateway's call detail record id for the session.
	CDRReference  uint32
	IMEI          IMEI
	SessionStatus SessionStatus
	MOMSN         uint16
	MTMSN         uint16
	// TimeOfSession has a one second resolution and travels as 32 bit unix time, in UTC.
	// The zero Time travels as 0.
	TimeOfSession time.Time
}

func (MOHeader) IEI() IEI { return IEIMOHeader }
func (MOHeader) Len() int { return moHeaderLength }

func (h MOHeader) validate() error {
	t := h.TimeOfSession
	if t.IsZero() {
		return nil
	}
	if secs := t.Unix(); secs <= 0 || secs > math.MaxUint32 {
		return invalidElement(IEIMOHeader, "time of session %v out of range", t)
	}
	if t.Location() != time.UTC || t.Nanosecond() != 0 {
		return invalidElement(IEIMOHeader, "time of session %v is not a whole second in UTC", t)
	}
	return nil
}

func encodeSessionTime(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	return uint32(t.Unix())
}

func decodeSessionTime(secs uint32) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}

func (h MOHeader) putBody(b []byte) {
	binary.BigEndian.PutUint32(b[0:], h.CDRReference)
	copy(b[4:19], h.IMEI[:])
	b[19] = byte(h.SessionStatus)
	binary.BigEndian.PutUint16(b[20:], h.MOMSN)
	binary.BigEndian.PutUint16(b[22:], h.MTMSN)
	binary.BigEndian.PutUint32(b[24:], encodeSessionTime(h.TimeOfSession))
}

func decodeMOHeader(body []byte) (MOHeader, error) {
	var h MOHeader
	if err := checkFixedLength(IEIMOHeader, body, moHeaderLength); err != nil {
		return h, err
	}
	h.CDRReference = binary.BigEndian.Uint32(body[0:])
	copy(h.IMEI[:], body[4:19])
	h.SessionStatus = SessionStatus(body[19])
	h.MOMSN = binary.BigEndian.Uint16(body[20:])
	h.MTMSN = binary.BigEndian.Uint16(body[22:])
	h.TimeOfSession = decodeSessionTime(binary.BigEndian.Uint32(body[24:]))
	return h, nil
}

// MTHeader addresses an MT message to a modem.
type MTHeader struct {
	// ClientMessageID is echoed back by the gateway in the MT confirmation.
	ClientMessageID uint32
	IMEI            IMEI
	// DispositionFlags is the raw flag word, see DispositionFlags.Encode.
	DispositionFlags uint16
}

func (MTHeader) IEI() IEI { return IEIMTHeader }
func (MTHeader) Len() int { return mtHeaderLength }

func (h MTHeader) validate() error { return nil }

func (h MTHeader) putBody(b []byte) {
	binary.BigEndian.PutUint32(b[0:], h.ClientMessageID)
	copy(b[4:19], h.IMEI[:])
	binary.BigEndian.PutUint16(b[19:], h.DispositionFlags)
}

// Flags decodes the disposition flag word.
func (h MTHeader) Flags() DispositionFlags {
	return ParseDispositionFlags(h.DispositionFlags)
}

func decodeMTHeader(body []byte) (MTHeader, error) {
	var h MTHeader
	if err := checkFixedLength(IEIMTHeader, body, mtHeaderLength); err != nil {
		return h, err
	}
	h.ClientMessageID = binary.BigEndian.Uint32(body[0:])
	copy(h.IMEI[:], body[4:19])
	h.DispositionFlags = binary.BigEndian.Uint16(body[19:])
	return h, nil
}
