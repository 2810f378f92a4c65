package iridium

import "encoding/hex"

// IMEILength is the fixed size of the IMEI field.
const IMEILength = 15

// IMEI is the 15 byte modem identifier as it appears on the wire.
type IMEI [IMEILength]byte

// ParseIMEI accepts exactly 15 ASCII digits.
func ParseIMEI(s string) (IMEI, error) {
	var imei IMEI
	if len(s) != IMEILength {
		return imei, ErrInvalidIMEI
	}
	copy(imei[:], s)
	if !imei.Valid() {
		return IMEI{}, ErrInvalidIMEI
	}
	return imei, nil
}

// MustParseIMEI is ParseIMEI for constants, it panics on error.
func MustParseIMEI(s string) IMEI {
	imei, err := ParseIMEI(s)
	if err != nil {
		panic(err)
	}
	return imei
}

// Valid reports whether every byte is an ASCII digit. The Luhn check digit is not verified.
func (i IMEI) Valid() bool {
	for _, c := range i {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// String returns the digits, or a hex dump when the field holds something else.
func (i IMEI) String() string {
	if i.Valid() {
		return string(i[:])
	}
	return hex.EncodeToString(i[:])
}
