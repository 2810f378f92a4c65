package iridium

const (
	// MaxMOPayloadLength is the largest payload a modem can send in one session.
	MaxMOPayloadLength = 1960
	// MaxMTPayloadLength is the largest payload the gateway accepts for a modem.
	MaxMTPayloadLength = 1890
)

// MOPayload is the data a modem sent.
type MOPayload struct {
	Data []byte
}

// NewMOPayload copies data after checking it fits a single MO message.
func NewMOPayload(data []byte) (MOPayload, error) {
	p := MOPayload{Data: append([]byte(nil), data...)}
	return p, p.validate()
}

func (MOPayload) IEI() IEI { return IEIMOPayload }
func (p MOPayload) Len() int { return len(p.Data) }

func (p MOPayload) validate() error {
	return checkPayloadLength(len(p.Data), MaxMOPayloadLength)
}

func (p MOPayload) putBody(b []byte) { copy(b, p.Data) }

func decodeMOPayload(body []byte) (MOPayload, error) {
	if err := checkPayloadLength(len(body), MaxMOPayloadLength); err != nil {
		return MOPayload{}, err
	}
	return MOPayload{Data: append([]byte(nil), body...)}, nil
}

// MTPayload is the data to deliver to a modem.
type MTPayload struct {
	Data []byte
}

// NewMTPayload copies data after checking it is between 1 and MaxMTPayloadLength bytes.
func NewMTPayload(data []byte) (MTPayload, error) {
	p := MTPayload{Data: append([]byte(nil), data...)}
	return p, p.validate()
}

func (MTPayload) IEI() IEI { return IEIMTPayload }
func (p MTPayload) Len() int { return len(p.Data) }

func (p MTPayload) validate() error {
	return checkPayloadLength(len(p.Data), MaxMTPayloadLength)
}

func (p MTPayload) putBody(b []byte) { copy(b, p.Data) }

func decodeMTPayload(body []byte) (MTPayload, error) {
	if err := checkPayloadLength(len(body), MaxMTPayloadLength); err != nil {
		return MTPayload{}, err
	}
	return MTPayload{Data: append([]byte(nil), body...)}, nil
}

func checkPayloadLength(n, max int) error {
	if n == 0 {
		return &UndersizedError{Size: n}
	}
	if n > max {
		return ErrOversized
	}
	return nil
}
