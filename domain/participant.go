// Package domain contains core concepts of the chat system.
// This file defines the identifiers carried by participants.
// No runtime, network, or UI logic should be added here.
package domain

// ConnectionID is assigned by the transport for the lifetime of one connection.
type ConnectionID string

// Username is a display label, already lowercased and truncated.
// It is neither unique nor authenticated.
type Username string

// RoomID names a room, already lowercased.
type RoomID string
