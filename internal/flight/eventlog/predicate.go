package eventlog

import (
	"fmt"
	"slices"
	"time"

	"flighttracker/internal/flight/models"
	"flighttracker/pkg/domain"
)

// PredicateKind tags the variant held by a Predicate.
type PredicateKind int

const (
	KindOwnerEquals PredicateKind = iota + 1
	KindTeamIn
	KindOrgEquals
	KindStatusEquals
	KindDateRange
	KindAnyOf
)

func (k PredicateKind) String() string {
	switch k {
	case KindOwnerEquals:
		return "owner_equals"
	case KindTeamIn:
		return "team_in"
	case KindOrgEquals:
		return "org_equals"
	case KindStatusEquals:
		return "status_equals"
	case KindDateRange:
		return "date_range"
	case KindAnyOf:
		return "any_of"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Predicate is a row filter evaluated in process against a decoded flight.
// Only the fields of its Kind are meaningful. Build with the constructors.
type Predicate struct {
	Kind   PredicateKind
	Value  string
	Values []string
	From   time.Time
	To     time.Time
	Any    []Predicate
}

func OwnerEquals(owner string) Predicate {
	return Predicate{Kind: KindOwnerEquals, Value: owner}
}

// TeamIn matches flights whose teamId is one of teams. An empty set matches nothing.
func TeamIn(teams ...string) Predicate {
	return Predicate{Kind: KindTeamIn, Values: slices.Clone(teams)}
}

func OrgEquals(org string) Predicate {
	return Predicate{Kind: KindOrgEquals, Value: org}
}

func StatusEquals(status domain.FlightStatus) Predicate {
	return Predicate{Kind: KindStatusEquals, Value: string(status)}
}

// DateRange matches from <= createdAt <= to. A zero bound is open.
func DateRange(from, to time.Time) Predicate {
	return Predicate{Kind: KindDateRange, From: from, To: to}
}

// AnyOf matches when at least one of preds matches.
func AnyOf(preds ...Predicate) Predicate {
	return Predicate{Kind: KindAnyOf, Any: slices.Clone(preds)}
}

// Match evaluates p against f. Identity predicates never match an empty
// value, so a record without an owner is not visible to an anonymous caller.
func (p Predicate) Match(f *models.Flight) bool {
	switch p.Kind {
	case KindOwnerEquals:
		return p.Value != "" && f.Owner == p.Value
	case KindTeamIn:
		return f.TeamID != "" && slices.Contains(p.Values, f.TeamID)
	case KindOrgEquals:
		return p.Value != "" && f.OrgID == p.Value
	case KindStatusEquals:
		return string(f.Status) == p.Value
	case KindDateRange:
		return inRange(f.CreatedAt, p.From, p.To)
	case KindAnyOf:
		for _, sub := range p.Any {
			if sub.Match(f) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MatchAll reports whether f satisfies every predicate.
func MatchAll(preds []Predicate, f *models.Flight) bool {
	for _, p := range preds {
		if !p.Match(f) {
			return false
		}
	}
	return true
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// ScopePredicates returns the row-level filter for caller querying at scope.
//
//	own  -> OwnerEquals(caller)
//	team -> AnyOf(OwnerEquals(caller), TeamIn(caller teams))
//	org  -> OrgEquals(caller org)
//	all  -> no filter
//
// Unknown scopes fall back to own.
func ScopePredicates(scope domain.Scope, caller domain.Identity) []Predicate {
	switch scope {
	case domain.ScopeAll:
		return nil
	case domain.ScopeOrg:
		return []Predicate{OrgEquals(caller.OrgID)}
	case domain.ScopeTeam:
		return []Predicate{AnyOf(OwnerEquals(caller.UserID), TeamIn(caller.TeamIDs...))}
	default:
		return []Predicate{OwnerEquals(caller.UserID)}
	}
}
