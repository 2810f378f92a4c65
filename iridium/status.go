package iridium

import "fmt"

// SessionStatus is the MO header's session status, table 5-3.
type SessionStatus uint8

const (
	SessionOK                     SessionStatus = 0
	SessionOKMTTooLarge           SessionStatus = 1
	SessionOKLocationUnacceptable SessionStatus = 2
	SessionTimeout                SessionStatus = 10
	SessionMOTooLarge             SessionStatus = 12
	SessionRFLinkLoss             SessionStatus = 13
	SessionIMEIProtocolAnomaly    SessionStatus = 14
	SessionIMEIProhibited         SessionStatus = 15
)

var sessionStatusNames = map[SessionStatus]string{
	SessionOK:                     "ok",
	SessionOKMTTooLarge:           "ok, MT message too large",
	SessionOKLocationUnacceptable: "ok, location unacceptable",
	SessionTimeout:                "timeout",
	SessionMOTooLarge:             "MO message too large",
	SessionRFLinkLoss:             "RF link loss",
	SessionIMEIProtocolAnomaly:    "IMEI protocol anomaly",
	SessionIMEIProhibited:         "IMEI prohibited",
}

// Successful sessions are the ones whose MO payload was delivered.
func (s SessionStatus) Successful() bool {
	return s <= SessionOKLocationUnacceptable
}

func (s SessionStatus) String() string {
	if name, ok := sessionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown session status %d", uint8(s))
}

// MTMessageStatus is the status the gateway reports in an MT confirmation. Positive values
// are the position of the message in the modem's MT queue.
type MTMessageStatus int16

// Statuses for handlers of mt messages
const (
	StatusOK                   MTMessageStatus = 0
	StatusInvalidIMEI          MTMessageStatus = -1
	StatusUnknownIMEI          MTMessageStatus = -2
	StatusPayloadSizeExceeded  MTMessageStatus = -3
	StatusPayloadExpected      MTMessageStatus = -4
	StatusQueueFull            MTMessageStatus = -5
	StatusResourcesUnavailable MTMessageStatus = -6
	StatusViolationProtocol    MTMessageStatus = -7
	StatusRingAlertsDisabled   MTMessageStatus = -8
	StatusIMEINotAttached      MTMessageStatus = -9
)

var mtStatusNames = map[MTMessageStatus]string{
	StatusInvalidIMEI:          "invalid IMEI",
	StatusUnknownIMEI:          "unknown IMEI",
	StatusPayloadSizeExceeded:  "payload size exceeded",
	StatusPayloadExpected:      "payload expected but not received",
	StatusQueueFull:            "MT queue full",
	StatusResourcesUnavailable: "MT resources unavailable",
	StatusViolationProtocol:    "violation of MT DirectIP protocol",
	StatusRingAlertsDisabled:   "ring alerts disabled",
	StatusIMEINotAttached:      "IMEI not attached",
}

// Queued reports whether the gateway accepted the message.
func (s MTMessageStatus) Queued() bool {
	return s >= 0
}

func (s MTMessageStatus) String() string {
	if s == StatusOK {
		return "queued, no payload"
	}
	if s > 0 {
		return fmt.Sprintf("queued at position %d", int16(s))
	}
	if name, ok := mtStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown MT status %d", int16(s))
}
