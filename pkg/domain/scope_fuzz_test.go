package domain

import "testing"

// FuzzParseScope checks that parsing never panics and that every accepted
// value is one of the ordered scopes.
func FuzzParseScope(f *testing.F) {
	f.Add("")
	f.Add("own")
	f.Add("all")
	f.Add("ALL")
	f.Add("team\x00")

	f.Fuzz(func(t *testing.T, input string) {
		sc, err := ParseScope(input)
		if err != nil {
			return
		}
		if !sc.IsValid() {
			t.Errorf("accepted invalid scope %q", input)
		}
		if !ScopeAll.Covers(sc) {
			t.Errorf("scope %q not covered by all", sc)
		}
	})
}
