// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once built.
package domain

type Style string

const (
	StyleStandard      Style = "standard"
	StyleAdminGradient Style = "admin-gradient"
)

// Message is what a room stores in its history and broadcasts to members.
// Timestamp is a wall-clock display string, not a parseable instant.
type Message struct {
	User      Username `json:"user"`
	Text      string   `json:"text"`
	Style     Style    `json:"style"`
	Timestamp string   `json:"timestamp"`
}
