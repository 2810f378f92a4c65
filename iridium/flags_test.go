package iridium

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispositionFlagsEncode(t *testing.T) {
	tt := []struct {
		name  string
		flags DispositionFlags
		want  uint16
	}{
		{"all false", DispositionFlags{}, 0},
		{"flush queue", DispositionFlags{FlushQueue: true}, 1},
		{"send ring alert", DispositionFlags{SendRingAlert: true}, 2},
		// bit 2 is reserved, update location is bit 3
		{"update location", DispositionFlags{UpdateLocation: true}, 8},
		{"high priority", DispositionFlags{HighPriority: true}, 16},
		{"assign mtmsn", DispositionFlags{AssignMTMSN: true}, 32},
		{"all true", DispositionFlags{
			FlushQueue:     true,
			SendRingAlert:  true,
			UpdateLocation: true,
			HighPriority:   true,
			AssignMTMSN:    true,
		}, 59},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.flags.Encode())
			assert.Equal(t, tc.flags, ParseDispositionFlags(tc.want))
		})
	}
}

func TestDispositionFlagsReservedBit(t *testing.T) {
	assert.Equal(t, DispositionFlags{}, ParseDispositionFlags(1<<2))
	assert.Zero(t, DispositionFlags{
		FlushQueue:     true,
		SendRingAlert:  true,
		UpdateLocation: true,
		HighPriority:   true,
		AssignMTMSN:    true,
	}.Encode()&(1<<2))
}

func TestMTHeaderFlags(t *testing.T) {
	h := MTHeader{DispositionFlags: DispositionFlags{FlushQueue: true, AssignMTMSN: true}.Encode()}
	assert.Equal(t, uint16(33), h.DispositionFlags)
	assert.True(t, h.Flags().FlushQueue)
	assert.True(t, h.Flags().AssignMTMSN)
	assert.False(t, h.Flags().SendRingAlert)
}
