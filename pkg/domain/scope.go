package domain

import dErrors "flighttracker/pkg/domain-errors"

// Scope is the breadth of flight records a caller may see.
// Scopes are ordered: own < team < org < all.
type Scope string

const (
	ScopeOwn  Scope = "own"
	ScopeTeam Scope = "team"
	ScopeOrg  Scope = "org"
	ScopeAll  Scope = "all"
)

var scopeRank = map[Scope]int{
	ScopeOwn:  1,
	ScopeTeam: 2,
	ScopeOrg:  3,
	ScopeAll:  4,
}

// ParseScope constructs a Scope from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseScope(s string) (Scope, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "scope cannot be empty")
	}
	sc := Scope(s)
	if !sc.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid scope "+s)
	}
	return sc, nil
}

// IsValid checks if the scope is one of the supported values.
func (s Scope) IsValid() bool {
	_, ok := scopeRank[s]
	return ok
}

// Covers reports whether a caller granted s may query at scope other.
func (s Scope) Covers(other Scope) bool {
	return s.IsValid() && other.IsValid() && scopeRank[s] >= scopeRank[other]
}

func (s Scope) String() string {
	return string(s)
}
