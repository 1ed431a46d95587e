package user

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Type classifies a user for display
type Type string

const (
	TypeTeammate Type = "Teammate"
	TypeCopilot  Type = "Copilot"
	TypeCustomer Type = "Customer"
	TypePartner  Type = "Partner"
)

// User is an LNbits account as seen by the feed. IDs are opaque strings owned by LNbits.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AADObjectID string `json:"aad_object_id,omitempty"`
	Type        Type   `json:"type"`
}

// Label is the best human label for the user: display name, then email, then id.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// ParseType maps the free-text extra.type field, defaulting to Teammate.
func ParseType(s string) Type {
	for _, t := range []Type{TypeTeammate, TypeCopilot, TypeCustomer, TypePartner} {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return TypeTeammate
}

// DeriveDisplayName builds a friendly name from an LNbits username.
// "jane.doe@example.com" becomes "Jane Doe"; a plain username is returned
// unchanged; an empty username falls back to the id.
func DeriveDisplayName(username, id string) string {
	name := username
	if name == "" {
		return id
	}
	if at := strings.Index(name, "@"); at >= 0 {
		name = strings.Replace(name[:at], ".", " ", 1)
		words := strings.Split(name, " ")
		for i, w := range words {
			words[i] = capitalize(w)
		}
		name = strings.Join(words, " ")
	}
	return name
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}
