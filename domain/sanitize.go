package domain

import "strings"

const (
	DefaultMaxMembers        = 15
	DefaultMaxHistory        = 25
	DefaultMaxUsernameLength = 20
	DefaultMaxTextLength     = 500
)

// Limits groups the bounds fixed at process start.
type Limits struct {
	MaxMembers        int
	MaxHistory        int
	MaxUsernameLength int
	MaxTextLength     int
}

func DefaultLimits() Limits {
	return Limits{
		MaxMembers:        DefaultMaxMembers,
		MaxHistory:        DefaultMaxHistory,
		MaxUsernameLength: DefaultMaxUsernameLength,
		MaxTextLength:     DefaultMaxTextLength,
	}
}

// Sanitizer normalizes untrusted identifiers and text.
// Every method is total: any input, including empty, yields a value.
type Sanitizer struct {
	limits Limits
}

func NewSanitizer(limits Limits) Sanitizer {
	return Sanitizer{limits: limits}
}

// User lowercases then keeps the first MaxUsernameLength characters.
func (s Sanitizer) User(raw string) Username {
	return Username(truncate(strings.ToLower(raw), s.limits.MaxUsernameLength))
}

// Room lowercases, without any length bound.
func (s Sanitizer) Room(raw string) RoomID {
	return RoomID(strings.ToLower(raw))
}

// Text keeps the first MaxTextLength characters.
func (s Sanitizer) Text(raw string) string {
	return truncate(raw, s.limits.MaxTextLength)
}

// truncate counts runes so a multi-byte character is never split.
func truncate(s string, max int) string {
	if max < 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
