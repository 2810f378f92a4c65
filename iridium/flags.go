package iridium

// MT disposition flag bits, table 5-9. Bit 2 is reserved, so the flags are not contiguous
// and all five set encode to 0x3b.
const (
	FlagFlushQueue     uint16 = 1 << 0
	FlagSendRingAlert  uint16 = 1 << 1
	FlagUpdateLocation uint16 = 1 << 3
	FlagHighPriority   uint16 = 1 << 4
	FlagAssignMTMSN    uint16 = 1 << 5
)

// DispositionFlags are the named bits of an MT header's flag word.
type DispositionFlags struct {
	FlushQueue     bool
	SendRingAlert  bool
	UpdateLocation bool
	HighPriority   bool
	AssignMTMSN    bool
}

// Encode packs the flags into their bit positions.
func (f DispositionFlags) Encode() uint16 {
	var v uint16
	if f.FlushQueue {
		v |= FlagFlushQueue
	}
	if f.SendRingAlert {
		v |= FlagSendRingAlert
	}
	if f.UpdateLocation {
		v |= FlagUpdateLocation
	}
	if f.HighPriority {
		v |= FlagHighPriority
	}
	if f.AssignMTMSN {
		v |= FlagAssignMTMSN
	}
	return v
}

// ParseDispositionFlags reads the named bits of v. Reserved and undefined bits are ignored.
func ParseDispositionFlags(v uint16) DispositionFlags {
	return DispositionFlags{
		FlushQueue:     v&FlagFlushQueue != 0,
		SendRingAlert:  v&FlagSendRingAlert != 0,
		UpdateLocation: v&FlagUpdateLocation != 0,
		HighPriority:   v&FlagHighPriority != 0,
		AssignMTMSN:    v&FlagAssignMTMSN != 0,
	}
}
