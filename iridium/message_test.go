package iridium

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIMEI = MustParseIMEI("300234010123450")

func moMessage(t *testing.T, payload string) *Message {
	p, err := NewMOPayload([]byte(payload))
	require.NoError(t, err)
	m, err := NewMessage(
		MOHeader{
			CDRReference:  1894823,
			IMEI:          testIMEI,
			SessionStatus: SessionOK,
			MOMSN:         12,
			MTMSN:         0,
			TimeOfSession: time.Date(2019, 3, 4, 10, 11, 12, 0, time.UTC),
		},
		p,
		MOLocation{LatitudeDegrees: 43, LatitudeMinutes: 12345, LongitudeDegrees: 79, LongitudeMinutes: 2000, West: true, CEPRadius: 3},
	)
	require.NoError(t, err)
	return m
}

func mtMessage(t *testing.T, payload string) *Message {
	p, err := NewMTPayload([]byte(payload))
	require.NoError(t, err)
	m, err := NewMessage(
		MTHeader{ClientMessageID: 77, IMEI: testIMEI, DispositionFlags: FlagFlushQueue},
		p,
		MTPriority{Level: 2},
	)
	require.NoError(t, err)
	return m
}

func TestMessageRoundTrip(t *testing.T) {
	tt := []struct {
		name string
		msg  *Message
	}{
		{"MO", moMessage(t, "position report")},
		{"MT", mtMessage(t, "reboot")},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tc.msg.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, ProtocolRevision, raw[0])
			assert.Equal(t, tc.msg.OverallLength(), int(raw[1])<<8|int(raw[2]))
			assert.Len(t, raw, PreambleLength+tc.msg.OverallLength())

			decoded, err := Unmarshal(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
			assert.Equal(t, testIMEI, decoded.IMEI())
		})
	}
}

func TestMessageAccessors(t *testing.T) {
	m := moMessage(t, "hi")
	assert.Equal(t, MobileOriginated, m.Direction())
	assert.Equal(t, []byte("hi"), m.Payload())
	h, ok := m.MOHeader()
	require.True(t, ok)
	assert.Equal(t, uint16(12), h.MOMSN)
	_, ok = m.MTHeader()
	assert.False(t, ok)
	loc, ok := m.MOLocation()
	require.True(t, ok)
	assert.True(t, loc.Longitude() < 0)
	assert.Equal(t, "MO message from 300234010123450 [MO header(28) MO payload(2) MO location(11)]", m.String())

	mt := mtMessage(t, "x")
	assert.Equal(t, MobileTerminated, mt.Direction())
	_, ok = mt.Element(IEIMTPriority)
	assert.True(t, ok)
}

func TestDecodeReadsExactFrame(t *testing.T) {
	raw, err := moMessage(t, "abc").MarshalBinary()
	require.NoError(t, err)
	r := bytes.NewReader(append(raw, 0xde, 0xad))
	_, err = Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	_, err = Unmarshal(append(raw, 0xde, 0xad))
	assert.True(t, errors.Is(err, ErrTrailingData))
}

func TestDecodeInvalidRevision(t *testing.T) {
	r := bytes.NewReader([]byte{2, 0, 0, 1, 2, 3})
	_, err := Decode(r)
	var revErr *InvalidProtocolRevisionError
	require.True(t, errors.As(err, &revErr))
	assert.Equal(t, byte(2), revErr.Revision)
	// only the revision byte is consumed
	assert.Equal(t, 5, r.Len())
}

func TestDecodeUndersized(t *testing.T) {
	for _, in := range [][]byte{{}, {1}, {1, 0}} {
		_, err := Decode(bytes.NewReader(in))
		var undersized *UndersizedError
		require.True(t, errors.As(err, &undersized), "%v", err)
		assert.Equal(t, len(in), undersized.Size)
	}
}

func TestDecodeOversized(t *testing.T) {
	r := bytes.NewReader([]byte{1, 0x07, 0xdd, 0, 0, 0})
	_, err := Decode(r)
	assert.Equal(t, ErrOversized, err)
	// the body is not read
	assert.Equal(t, 3, r.Len())

	// the largest valid length is accepted as far as the preamble goes
	_, err = Decode(bytes.NewReader([]byte{1, 0x07, 0xdc}))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestDecodeTruncatedBody(t *testing.T) {
	raw, err := mtMessage(t, "truncated").MarshalBinary()
	require.NoError(t, err)
	_, err = Decode(bytes.NewReader(raw[:len(raw)-4]))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestDecodeHeaderOnly(t *testing.T) {
	header, err := EncodeElement(MOHeader{IMEI: testIMEI, TimeOfSession: time.Unix(1, 0).UTC()})
	require.NoError(t, err)
	r := bytes.NewReader(append(frame(header...), 9, 9, 9))
	_, err = Decode(r)
	assert.Equal(t, ErrMissingMOPayload, err)
	assert.Equal(t, 3, r.Len())
}

func frame(body ...byte) []byte {
	return append([]byte{1, byte(len(body) >> 8), byte(len(body))}, body...)
}

func TestDecodeStructureErrors(t *testing.T) {
	moHeader, err := EncodeElement(MOHeader{IMEI: testIMEI, TimeOfSession: time.Unix(1, 0).UTC()})
	require.NoError(t, err)
	moPayload, err := EncodeElement(MOPayload{Data: []byte("x")})
	require.NoError(t, err)
	mtHeader, err := EncodeElement(MTHeader{IMEI: testIMEI})
	require.NoError(t, err)
	mtPayload, err := EncodeElement(MTPayload{Data: []byte("y")})
	require.NoError(t, err)

	join := func(parts ...[]byte) []byte {
		var b []byte
		for _, p := range parts {
			b = append(b, p...)
		}
		return b
	}

	tt := []struct {
		name string
		in   []byte
		want error
	}{
		{"unknown tag", frame(join(moHeader, moPayload, []byte{0x09, 0x00, 0x01, 0x00})...), ErrInvalidInformationElement},
		{"length overruns frame", frame(join(moHeader, []byte{0x02, 0x00, 0x09, 'a'})...), ErrInvalidInformationElement},
		{"truncated element header", frame(join(moHeader, moPayload, []byte{0x03, 0x00})...), ErrInvalidInformationElement},
		{"repeated payload", frame(join(moHeader, moPayload, moPayload)...), ErrInvalidInformationElement},
		{"mixed direction", frame(join(moHeader, moPayload, mtPayload)...), ErrInvalidInformationElement},
		{"MO without header", frame(moPayload...), ErrMissingMOHeader},
		{"MT without header", frame(mtPayload...), ErrMissingMTHeader},
		{"MT without payload", frame(mtHeader...), ErrMissingMTPayload},
		{"empty", frame(), ErrMissingMOHeader},
		{"zero length payload", frame(join(moHeader, []byte{0x02, 0x00, 0x00})...), nil},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Unmarshal(tc.in)
			assert.Nil(t, m)
			if tc.want == nil {
				var undersized *UndersizedError
				assert.True(t, errors.As(err, &undersized), "%v", err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "%v", err)
		})
	}
}

func TestEncodeAllOrNothing(t *testing.T) {
	tt := []struct {
		name string
		msg  *Message
		want error
	}{
		{"no header", &Message{Elements: []InformationElement{MOPayload{Data: []byte("x")}}}, ErrMissingMOHeader},
		{"no payload", &Message{Elements: []InformationElement{MTHeader{IMEI: testIMEI}}}, ErrMissingMTPayload},
		{"bad priority", &Message{Elements: []InformationElement{
			MTHeader{IMEI: testIMEI}, MTPayload{Data: []byte("x")}, MTPriority{Level: 9},
		}}, ErrInvalidInformationElement},
		{"oversized payload", &Message{Elements: []InformationElement{
			MTHeader{IMEI: testIMEI}, MTPayload{Data: make([]byte, MaxMTPayloadLength+1)},
		}}, ErrOversized},
		{"mixed", &Message{Elements: []InformationElement{
			MTHeader{IMEI: testIMEI}, MTPayload{Data: []byte("x")}, MOLocation{},
		}}, ErrInvalidInformationElement},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tc.msg.WriteTo(&buf)
			assert.True(t, errors.Is(err, tc.want), "%v", err)
			assert.Zero(t, n)
			assert.Zero(t, buf.Len())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteToIOError(t *testing.T) {
	_, err := mtMessage(t, "x").WriteTo(failingWriter{})
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, io.ErrClosedPipe, ioErr.Err)
}

func TestMaxOverallLength(t *testing.T) {
	assert.Equal(t, 2012, MaxOverallLength)
	p, err := NewMOPayload(make([]byte, MaxMOPayloadLength))
	require.NoError(t, err)
	m, err := NewMessage(
		MOHeader{IMEI: testIMEI, TimeOfSession: time.Unix(1, 0).UTC()},
		p,
		MOLocation{},
		MOConfirmation{Accepted: true},
	)
	require.NoError(t, err)
	raw, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw, PreambleLength+MaxOverallLength)
	decoded, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestConfirmations(t *testing.T) {
	raw, err := MarshalConfirmation(MOConfirmation{Accepted: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 4, 0x05, 0, 1, 1}, raw)
	mo, err := DecodeMOConfirmation(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, mo.Accepted)

	want := MTConfirmation{ClientMessageID: 77, IMEI: testIMEI, AutoIDReference: 1234, Status: 1}
	raw, err = MarshalConfirmation(want)
	require.NoError(t, err)
	assert.Len(t, raw, PreambleLength+3+25)
	got, err := DecodeMTConfirmation(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// the wrong confirmation kind is refused
	_, err = DecodeMOConfirmation(bytes.NewReader(raw))
	assert.True(t, errors.Is(err, ErrInvalidInformationElement))

	// a full message is not a confirmation
	full, err := mtMessage(t, "x").MarshalBinary()
	require.NoError(t, err)
	_, err = DecodeMTConfirmation(bytes.NewReader(full))
	assert.True(t, errors.Is(err, ErrInvalidInformationElement))
}

// Captured from an Omnicom beacon and the gateway it talked to.
var (
	capturedMOLocationOnly = []byte{1, 0, 45,
		0x01, 0x00, 0x1c,
		0x00, 0x12, 0xd6, 0x87,
		0x33, 0x30, 0x30, 0x30, 0x33, 0x34, 0x30, 0x31, 0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x30,
		0x00,
		0xd4, 0x31,
		0x30, 0x39,
		0x43, 0xb5, 0x39, 0xe1,
		0x03, 0x00, 0x0b,
		0x01, 0x2f, 0xbf, 0xd9, 0x03, 0x63, 0x21, 0x00, 0x00, 0x00, 0x03}

	capturedMTConfirmation = []byte{1, 0, 28, 68, 0, 25, 116, 101, 115, 116,
		51, 48, 48, 50, 51, 52, 48, 49, 48, 48, 51, 48,
		52, 53, 49, 0, 0, 0, 0, 255, 254}
)

func TestCapturedMessages(t *testing.T) {
	_, err := Unmarshal(capturedMOLocationOnly)
	assert.Equal(t, ErrMissingMOPayload, err)

	c, err := DecodeMTConfirmation(bytes.NewReader(capturedMTConfirmation))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x74657374), c.ClientMessageID)
	assert.Equal(t, "300234010030451", c.IMEI.String())
	assert.Equal(t, uint32(0), c.AutoIDReference)
	assert.Equal(t, StatusUnknownIMEI, c.Status)
	assert.False(t, c.Status.Queued())
}
