package model

import "unicode/utf8"

// SessionID identifies a draft session (called a match by clients)
type SessionID string

// CaptainID identifies a captain within a session. Assigned once at creation.
type CaptainID string

// Unselected is the owner recorded for players no captain has picked yet
const Unselected CaptainID = "unselected"

// Captain is a role slot entitled to pick players in turn
type Captain struct {
	ID     CaptainID
	Name   string
	Secret string
}

// MaxCaptainNameLength bounds a captain's display name, in characters
const MaxCaptainNameLength = 64

// ValidCaptainName reports whether name is a usable display name
func ValidCaptainName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= MaxCaptainNameLength
}
