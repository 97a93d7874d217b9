package domain

import "slices"

// Identity is the caller as established by the bearer token: who they are,
// which teams and organization they belong to, and the broadest scope their
// token grants.
type Identity struct {
	UserID  string
	TeamIDs []string
	OrgID   string
	Granted Scope
}

// IsZero reports whether no caller was established.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// InTeam reports whether the caller belongs to team.
func (i Identity) InTeam(team string) bool {
	return team != "" && slices.Contains(i.TeamIDs, team)
}
