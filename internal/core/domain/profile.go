// Package domain defines the core domain models for bankline.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserProfile is the identity record returned by the profile endpoint.
//
// Known fields are mapped; everything else the server sends is kept in
// Extra so consumers can show account metadata without a schema change.
type UserProfile struct {
	ID       string         `json:"id"`
	FullName string         `json:"fullName"`
	Username string         `json:"username,omitempty"`
	Email    string         `json:"email,omitempty"`
	Extra    map[string]any `json:"-"`
}

var profileKnownKeys = map[string]struct{}{
	"id": {}, "fullName": {}, "username": {}, "email": {},
}

// UnmarshalJSON accepts numeric or string identifiers.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("profile: null object")
	}

	out := UserProfile{}
	switch id := raw["id"].(type) {
	case json.Number:
		out.ID = id.String()
	case string:
		out.ID = id
	case nil:
	default:
		return fmt.Errorf("profile: unsupported id type %T", id)
	}
	out.FullName, _ = raw["fullName"].(string)
	out.Username, _ = raw["username"].(string)
	out.Email, _ = raw["email"].(string)

	for k, v := range raw {
		if _, known := profileKnownKeys[k]; known {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v
	}

	*p = out
	return nil
}

// MarshalJSON writes known fields and Extra back into one object.
// Numeric identifiers are written as numbers.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		m[k] = v
	}
	if isNumber(p.ID) {
		m["id"] = json.Number(p.ID)
	} else {
		m["id"] = p.ID
	}
	m["fullName"] = p.FullName
	if p.Username != "" {
		m["username"] = p.Username
	}
	if p.Email != "" {
		m["email"] = p.Email
	}
	return json.Marshal(m)
}

// Validate checks the profile carries an identifier.
func (p *UserProfile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile: missing")
	}
	if p.ID == "" {
		return fmt.Errorf("profile: missing id")
	}
	return nil
}

// DisplayName returns the best human-readable name available.
func (p *UserProfile) DisplayName() string {
	switch {
	case p == nil:
		return ""
	case p.FullName != "":
		return p.FullName
	case p.Username != "":
		return p.Username
	default:
		return p.ID
	}
}

// Clone returns a deep-enough copy for handing out to readers.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Extra != nil {
		c.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

func isNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}
