package iridium

import "encoding/binary"

const (
	moConfirmationLength = 1
	mtConfirmationLength = 25
	mtPriorityLength     = 2
)

// MOConfirmation is sent back to the gateway by a DirectIP receiver.
type MOConfirmation struct {
	Accepted bool
}

func (MOConfirmation) IEI() IEI { return IEIMOConfirmation }
func (MOConfirmation) Len() int { return moConfirmationLength }

func (c MOConfirmation) validate() error { return nil }

func (c MOConfirmation) putBody(b []byte) {
	b[0] = 0
	if c.Accepted {
		b[0] = 1
	}
}

func decodeMOConfirmation(body []byte) (MOConfirmation, error) {
	if err := checkFixedLength(IEIMOConfirmation, body, moConfirmationLength); err != nil {
		return MOConfirmation{}, err
	}
	switch body[0] {
	case 0:
		return MOConfirmation{Accepted: false}, nil
	case 1:
		return MOConfirmation{Accepted: true}, nil
	}
	return MOConfirmation{}, invalidElement(IEIMOConfirmation, "status %d", body[0])
}

// MTConfirmation is the gateway's answer to an MT message.
type MTConfirmation struct {
	ClientMessageID uint32
	IMEI            IMEI
	// AutoIDReference is the gateway's id for the queued message, 0 when it was refused.
	AutoIDReference uint32
	Status          MTMessageStatus
}

func (MTConfirmation) IEI() IEI { return IEIMTConfirmation }
func (MTConfirmation) Len() int { return mtConfirmationLength }

func (c MTConfirmation) validate() error { return nil }

func (c MTConfirmation) putBody(b []byte) {
	binary.BigEndian.PutUint32(b[0:], c.ClientMessageID)
	copy(b[4:19], c.IMEI[:])
	binary.BigEndian.PutUint32(b[19:], c.AutoIDReference)
	binary.BigEndian.PutUint16(b[23:], uint16(c.Status))
}

func decodeMTConfirmation(body []byte) (MTConfirmation, error) {
	var c MTConfirmation
	if err := checkFixedLength(IEIMTConfirmation, body, mtConfirmationLength); err != nil {
		return c, err
	}
	c.ClientMessageID = binary.BigEndian.Uint32(body[0:])
	copy(c.IMEI[:], body[4:19])
	c.AutoIDReference = binary.BigEndian.Uint32(body[19:])
	c.Status = MTMessageStatus(int16(binary.BigEndian.Uint16(body[23:])))
	return c, nil
}

// MTPriority orders MT messages queued for the same modem. 1 is the highest level.
type MTPriority struct {
	Level uint16
}

func (MTPriority) IEI() IEI { return IEIMTPriority }
func (MTPriority) Len() int { return mtPriorityLength }

func (p MTPriority) validate() error {
	if p.Level < 1 || p.Level > 5 {
		return invalidElement(IEIMTPriority, "level %d", p.Level)
	}
	return nil
}

func (p MTPriority) putBody(b []byte) { binary.BigEndian.PutUint16(b, p.Level) }

func decodeMTPriority(body []byte) (MTPriority, error) {
	if err := checkFixedLength(IEIMTPriority, body, mtPriorityLength); err != nil {
		return MTPriority{}, err
	}
	p := MTPriority{Level: binary.BigEndian.Uint16(body)}
	return p, p.validate()
}
