package entity

import "strings"

// UserSummary is the compact participant view the backend embeds in rooms,
// messages and presence events.
type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials,omitempty"`
}

// InitialsOf derives two-letter initials when the backend omits the field
// (older backend versions send only display_name).
func InitialsOf(displayName string) string {
	parts := strings.Fields(displayName)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		r := []rune(parts[0])
		if len(r) == 1 {
			return strings.ToUpper(string(r[0]))
		}
		return strings.ToUpper(string(r[0:2]))
	default:
		first := []rune(parts[0])
		last := []rune(parts[len(parts)-1])
		return strings.ToUpper(string(first[0]) + string(last[0]))
	}
}
