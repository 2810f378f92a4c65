package iridium

import "encoding/binary"

const moLocationLength = 11

const (
	locationWest  = 1 << 0
	locationSouth = 1 << 1
	// bits 2-3 are the format code, always 0; bits 4-7 are reserved.
	locationReserved = 0xfc
)

// MOLocation is the gateway's estimate of where the modem was, table 5-6. Coordinates are
// kept as transmitted: whole degrees plus thousandths of a minute.
type MOLocation struct {
	South            bool
	West             bool
	LatitudeDegrees  uint8
	LatitudeMinutes  uint16 // thousandths of a minute, 0-59999
	LongitudeDegrees uint8
	LongitudeMinutes uint16 // thousandths of a minute, 0-59999
	// CEPRadius is the radius in kilometres of the circle the modem is within, 80% of the time.
	CEPRadius uint32
}

func (MOLocation) IEI() IEI { return IEIMOLocation }
func (MOLocation) Len() int { return moLocationLength }

// Latitude in decimal degrees, negative south of the equator.
func (l MOLocation) Latitude() float64 {
	v := float64(l.LatitudeDegrees) + float64(l.LatitudeMinutes)/1000/60
	if l.South {
		return -v
	}
	return v
}

// Longitude in decimal degrees, negative west of Greenwich.
func (l MOLocation) Longitude() float64 {
	v := float64(l.LongitudeDegrees) + float64(l.LongitudeMinutes)/1000/60
	if l.West {
		return -v
	}
	return v
}

func (l MOLocation) validate() error {
	switch {
	case l.LatitudeDegrees > 90:
		return invalidElement(IEIMOLocation, "latitude degrees %d", l.LatitudeDegrees)
	case l.LongitudeDegrees > 180:
		return invalidElement(IEIMOLocation, "longitude degrees %d", l.LongitudeDegrees)
	case l.LatitudeMinutes >= 60000 || l.LongitudeMinutes >= 60000:
		return invalidElement(IEIMOLocation, "minutes %d/%d", l.LatitudeMinutes, l.LongitudeMinutes)
	}
	return nil
}

func (l MOLocation) putBody(b []byte) {
	var flags byte
	if l.West {
		flags |= locationWest
	}
	if l.South {
		flags |= locationSouth
	}
	b[0] = flags
	b[1] = l.LatitudeDegrees
	binary.BigEndian.PutUint16(b[2:], l.LatitudeMinutes)
	b[4] = l.LongitudeDegrees
	binary.BigEndian.PutUint16(b[5:], l.LongitudeMinutes)
	binary.BigEndian.PutUint32(b[7:], l.CEPRadius)
}

func decodeMOLocation(body []byte) (MOLocation, error) {
	var l MOLocation
	if err := checkFixedLength(IEIMOLocation, body, moLocationLength); err != nil {
		return l, err
	}
	if body[0]&locationReserved != 0 {
		return l, invalidElement(IEIMOLocation, "unsupported format byte 0x%02x", body[0])
	}
	l.West = body[0]&locationWest != 0
	l.South = body[0]&locationSouth != 0
	l.LatitudeDegrees = body[1]
	l.LatitudeMinutes = binary.BigEndian.Uint16(body[2:])
	l.LongitudeDegrees = body[4]
	l.LongitudeMinutes = binary.BigEndian.Uint16(body[5:])
	l.CEPRadius = binary.BigEndian.Uint32(body[7:])
	return l, l.validate()
}
