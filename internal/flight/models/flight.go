package models

import (
	"encoding/json"
	"fmt"
	"time"

	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
)

// Known top-level JSON members of a flight record.
const (
	FieldID        = "id"
	FieldStatus    = "status"
	FieldCreatedAt = "createdAt"
	FieldOwner     = "owner"
	FieldTeamID    = "teamId"
	FieldOrgID     = "orgId"
	FieldGoal      = "goal"
	FieldExecution = "execution"
	FieldCost      = "cost"
)

// Flight is one recorded agent execution outcome.
//
// Invariants:
//   - ID and Status are required; Status is one of domain.FlightStatuses
//   - Records are immutable once appended; corrections are new records
//   - CreatedAt, once set at write time, determines the partition forever
//
// Goal, Execution and Cost are free-form and passed through verbatim. Members
// not listed above are kept in Extra so records round-trip without loss.
type Flight struct {
	ID        string
	Status    domain.FlightStatus
	CreatedAt time.Time
	Owner     string
	TeamID    string
	OrgID     string
	Goal      json.RawMessage
	Execution json.RawMessage
	Cost      json.RawMessage
	Extra     map[string]json.RawMessage
}

// Validate checks the required fields. It performs no I/O.
func (f *Flight) Validate() error {
	if f == nil {
		return dErrors.New(dErrors.CodeValidation, "flight is required")
	}
	if f.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "id is required")
	}
	if f.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	if _, err := domain.ParseFlightStatus(string(f.Status)); err != nil {
		return err
	}
	return nil
}

// HasRequired reports whether a decoded record carries id and status. Stored
// lines without them are treated as malformed.
func (f *Flight) HasRequired() bool {
	return f.ID != "" && f.Status != ""
}

// MarshalJSON writes known fields over Extra. Empty optional fields are omitted.
func (f Flight) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+9)
	for k, v := range f.Extra {
		out[k] = v
	}
	out[FieldID] = f.ID
	out[FieldStatus] = f.Status
	if !f.CreatedAt.IsZero() {
		out[FieldCreatedAt] = f.CreatedAt.UTC().Format(time.RFC3339Nano)
	} else {
		delete(out, FieldCreatedAt)
	}
	setString(out, FieldOwner, f.Owner)
	setString(out, FieldTeamID, f.TeamID)
	setString(out, FieldOrgID, f.OrgID)
	setRaw(out, FieldGoal, f.Goal)
	setRaw(out, FieldExecution, f.Execution)
	setRaw(out, FieldCost, f.Cost)
	return json.Marshal(out)
}

func setString(out map[string]any, key, v string) {
	if v == "" {
		delete(out, key)
		return
	}
	out[key] = v
}

func setRaw(out map[string]any, key string, v json.RawMessage) {
	if len(v) == 0 {
		delete(out, key)
		return
	}
	out[key] = v
}

// UnmarshalJSON accepts any JSON object. Known members must have the expected
// type; everything else lands in Extra.
func (f *Flight) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if members == nil {
		return fmt.Errorf("flight must be a JSON object")
	}

	var decoded Flight
	var status string
	fields := []struct {
		name string
		dst  *string
	}{
		{FieldID, &decoded.ID},
		{FieldStatus, &status},
		{FieldOwner, &decoded.Owner},
		{FieldTeamID, &decoded.TeamID},
		{FieldOrgID, &decoded.OrgID},
	}
	for _, fl := range fields {
		raw, ok := members[fl.name]
		delete(members, fl.name)
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, fl.dst); err != nil {
			return fmt.Errorf("field %s: %w", fl.name, err)
		}
	}
	decoded.Status = domain.FlightStatus(status)

	if raw, ok := members[FieldCreatedAt]; ok {
		delete(members, FieldCreatedAt)
		if !isNull(raw) {
			var ts string
			if err := json.Unmarshal(raw, &ts); err != nil {
				return fmt.Errorf("field %s: %w", FieldCreatedAt, err)
			}
			if ts != "" {
				parsed, err := time.Parse(time.RFC3339Nano, ts)
				if err != nil {
					return fmt.Errorf("field %s: %w", FieldCreatedAt, err)
				}
				decoded.CreatedAt = parsed.UTC()
			}
		}
	}

	for name, dst := range map[string]*json.RawMessage{
		FieldGoal:      &decoded.Goal,
		FieldExecution: &decoded.Execution,
		FieldCost:      &decoded.Cost,
	} {
		if raw, ok := members[name]; ok {
			delete(members, name)
			*dst = append(json.RawMessage(nil), raw...)
		}
	}

	if len(members) > 0 {
		decoded.Extra = members
	}
	*f = decoded
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
