package model

import "time"

// TeardownReason records why a session ended
type TeardownReason string

const (
	ReasonIdle          TeardownReason = "idle"
	ReasonHostTimeout   TeardownReason = "host_timeout"
	ReasonInternalError TeardownReason = "internal_error"
	ReasonShutdown      TeardownReason = "shutdown"
)

// CaptainResult is a captain and the players they ended up with
type CaptainResult struct {
	ID      CaptainID `json:"id"`
	Name    string    `json:"name"`
	Players []string  `json:"players"`
}

// DraftResult is the archived outcome of a torn-down session
type DraftResult struct {
	SessionID      SessionID       `json:"session_id"`
	Captains       []CaptainResult `json:"captains"`
	Unselected     []string        `json:"unselected"`
	Reason         TeardownReason  `json:"reason"`
	CreatedAt      time.Time       `json:"created_at"`
	ClosedAt       time.Time       `json:"closed_at"`
	HostSecretHash []byte          `json:"host_secret_hash"`
}
