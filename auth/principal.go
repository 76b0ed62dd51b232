package auth

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Principal is the verified identity attached to a request. It is built once by
// the verifier and never mutated afterwards.
type Principal struct {
	ID        string
	ClientID  string
	SessionID string
	Scopes    ScopeSet
	Audience  Audience
}

// ScopeSet holds the scopes granted to a token.
type ScopeSet map[string]struct{}

// ParseScopes splits an OAuth2 space separated scope string.
func ParseScopes(scope string) ScopeSet {
	set := ScopeSet{}
	for _, s := range strings.Fields(scope) {
		set[s] = struct{}{}
	}
	return set
}

func (s ScopeSet) Has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// Audience keeps track of whether the aud claim was a plain string or an array.
// Only the plain string shape is used for organization resolution.
type Audience struct {
	Values []string
	Array  bool
}

func SingleAudience(value string) Audience {
	return Audience{Values: []string{value}}
}

func ArrayAudience(values ...string) Audience {
	return Audience{Values: values, Array: true}
}

// Single returns the audience when it was issued as a plain string.
func (a Audience) Single() (string, bool) {
	if a.Array || len(a.Values) != 1 {
		return "", false
	}
	return a.Values[0], true
}

func (a Audience) IsZero() bool {
	return len(a.Values) == 0 && !a.Array
}

// ParseAudience decodes a raw aud claim. Anything that is neither a string nor a
// string array yields an empty audience.
func ParseAudience(raw json.RawMessage) Audience {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Audience{}
	}
	switch raw[0] {
	case '"':
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Audience{}
		}
		return SingleAudience(v)
	case '[':
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return Audience{}
		}
		return ArrayAudience(v...)
	}
	return Audience{}
}
