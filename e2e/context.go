// Package e2e drives a running flight tracker over HTTP with godog scenarios.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Caller is an identity the scenario can mint tokens for.
type Caller struct {
	UserID  string
	TeamIDs []string
	OrgID   string
	Scope   string
}

// TestContext holds per-scenario state. User and flight ids are suffixed with
// a run id so scenarios never see records from earlier runs.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string

	client  *http.Client
	runID   string
	callers map[string]Caller

	lastStatus int
	lastBody   []byte
}

func NewTestContext(baseURL, signingKey, issuer, audience string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SigningKey: signingKey,
		Issuer:     issuer,
		Audience:   audience,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset starts a fresh scenario.
func (tc *TestContext) Reset() {
	tc.runID = uuid.NewString()[:8]
	tc.callers = make(map[string]Caller)
	tc.lastStatus = 0
	tc.lastBody = nil
}

// Scoped suffixes name with the run id.
func (tc *TestContext) Scoped(name string) string {
	if name == "" {
		return ""
	}
	return name + "-" + tc.runID
}

// Unscoped strips the run id suffix added by Scoped.
func (tc *TestContext) Unscoped(name string) string {
	return strings.TrimSuffix(name, "-"+tc.runID)
}

// AddCallerIdentity registers the identity minted into name's tokens.
func (tc *TestContext) AddCallerIdentity(name, userID string, teamIDs []string, orgID, scope string) {
	tc.callers[name] = Caller{UserID: userID, TeamIDs: teamIDs, OrgID: orgID, Scope: scope}
}

func (tc *TestContext) token(name string) (string, error) {
	c, ok := tc.callers[name]
	if !ok {
		return "", fmt.Errorf("unknown caller %q", name)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": c.UserID,
		"org_id":  c.OrgID,
		"scope":   c.Scope,
		"sub":     c.UserID,
		"iss":     tc.Issuer,
		"aud":     []string{tc.Audience},
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
		"jti":     uuid.NewString(),
	}
	if len(c.TeamIDs) > 0 {
		claims["team_ids"] = c.TeamIDs
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
}

// Do sends a request as caller name; an empty name sends no token.
func (tc *TestContext) Do(method, path, name string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if name != "" {
		tok, err := tc.token(name)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// DecodeLast unmarshals the last response body into v.
func (tc *TestContext) DecodeLast(v any) error {
	if err := json.Unmarshal(tc.lastBody, v); err != nil {
		return fmt.Errorf("decode response %q: %w", tc.lastBody, err)
	}
	return nil
}
