package domain

import dErrors "flighttracker/pkg/domain-errors"

// FlightStatus is the lifecycle state of a recorded flight.
// Invariant: the value must be one of the supported statuses.
//
// Usage: construct via ParseFlightStatus at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type FlightStatus string

const (
	FlightStatusStarted    FlightStatus = "started"
	FlightStatusSuccessful FlightStatus = "successful"
	FlightStatusFailure    FlightStatus = "failure"
	FlightStatusPartial    FlightStatus = "partial"
	FlightStatusCancelled  FlightStatus = "cancelled"
)

// validFlightStatuses is the single source of truth for valid statuses.
var validFlightStatuses = map[FlightStatus]bool{
	FlightStatusStarted:    true,
	FlightStatusSuccessful: true,
	FlightStatusFailure:    true,
	FlightStatusPartial:    true,
	FlightStatusCancelled:  true,
}

// FlightStatuses lists the supported statuses in lifecycle order.
func FlightStatuses() []FlightStatus {
	return []FlightStatus{
		FlightStatusStarted,
		FlightStatusSuccessful,
		FlightStatusFailure,
		FlightStatusPartial,
		FlightStatusCancelled,
	}
}

// ParseFlightStatus constructs a FlightStatus from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseFlightStatus(s string) (FlightStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "status is required")
	}
	st := FlightStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported status "+s)
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s FlightStatus) IsValid() bool {
	return validFlightStatuses[s]
}

func (s FlightStatus) String() string {
	return string(s)
}
