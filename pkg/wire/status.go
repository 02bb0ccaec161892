package wire

import "fmt"

// StatusCode is a service or operation result code. Zero is success; codes
// with the severity bit set are failures.
type StatusCode uint32

// Status codes used by the engine.
const (
	StatusGood StatusCode = 0

	StatusBadUnexpectedError        StatusCode = 0x80010000
	StatusBadInternalError          StatusCode = 0x80020000
	StatusBadCommunicationError     StatusCode = 0x80050000
	StatusBadServiceUnsupported     StatusCode = 0x800B0000
	StatusBadTimeout                StatusCode = 0x800A0000
	StatusBadSessionIDInvalid       StatusCode = 0x80250000
	StatusBadSessionClosed          StatusCode = 0x80260000
	StatusBadNodeIDInvalid          StatusCode = 0x80330000
	StatusBadNodeIDUnknown          StatusCode = 0x80340000
	StatusBadAttributeIDInvalid     StatusCode = 0x80350000
	StatusBadNoMatch                StatusCode = 0x806F0000
	StatusBadTooManySubscriptions   StatusCode = 0x80770000
	StatusBadNoSubscription         StatusCode = 0x80790000
	StatusBadSequenceNumberUnknown  StatusCode = 0x807A0000
	StatusBadMonitoredItemIDInvalid StatusCode = 0x80420000
)

// IsGood reports whether the code indicates success.
func (s StatusCode) IsGood() bool {
	return s&0x80000000 == 0
}

// IsBad reports whether the code indicates failure.
func (s StatusCode) IsBad() bool {
	return s&0x80000000 != 0
}

// String returns the status name, or the hex code for unnamed values.
func (s StatusCode) String() string {
	switch s {
	case StatusGood:
		return "Good"
	case StatusBadUnexpectedError:
		return "BadUnexpectedError"
	case StatusBadInternalError:
		return "BadInternalError"
	case StatusBadCommunicationError:
		return "BadCommunicationError"
	case StatusBadServiceUnsupported:
		return "BadServiceUnsupported"
	case StatusBadTimeout:
		return "BadTimeout"
	case StatusBadSessionIDInvalid:
		return "BadSessionIdInvalid"
	case StatusBadSessionClosed:
		return "BadSessionClosed"
	case StatusBadNodeIDInvalid:
		return "BadNodeIdInvalid"
	case StatusBadNodeIDUnknown:
		return "BadNodeIdUnknown"
	case StatusBadAttributeIDInvalid:
		return "BadAttributeIdInvalid"
	case StatusBadNoMatch:
		return "BadNoMatch"
	case StatusBadTooManySubscriptions:
		return "BadTooManySubscriptions"
	case StatusBadNoSubscription:
		return "BadNoSubscription"
	case StatusBadSequenceNumberUnknown:
		return "BadSequenceNumberUnknown"
	case StatusBadMonitoredItemIDInvalid:
		return "BadMonitoredItemIdInvalid"
	default:
		return fmt.Sprintf("0x%08X", uint32(s))
	}
}

// StatusError is an error carrying a service result and the optional string
// table delivered alongside it.
type StatusError struct {
	Status      StatusCode
	StringTable []string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if len(e.StringTable) > 0 {
		return fmt.Sprintf("%s: %s", e.Status, e.StringTable[0])
	}
	return e.Status.String()
}

// ServiceError returns a *StatusError when the response header carries a bad
// service result, nil otherwise.
func ServiceError(h ResponseHeader) error {
	if h.ServiceResult.IsGood() {
		return nil
	}
	return &StatusError{Status: h.ServiceResult, StringTable: h.StringTable}
}
