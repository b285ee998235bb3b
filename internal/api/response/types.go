package response

import (
	"time"

	"github.com/mcoot/captain-draft/internal/model"
)

// CreateSession is the response for session creation. Only the host secret is returned.
type CreateSession struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// Health is the response for the health endpoint
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// CaptainResult is one captain's final picks
type CaptainResult struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

// DraftResult is an archived draft outcome
type DraftResult struct {
	ID         string          `json:"id"`
	Captains   []CaptainResult `json:"captains"`
	Unselected []string        `json:"unselected"`
	Reason     string          `json:"reason"`
	CreatedAt  time.Time       `json:"created_at"`
	ClosedAt   time.Time       `json:"closed_at"`
}

// DraftResultFromModel converts model.DraftResult, dropping the secret hash
func DraftResultFromModel(r *model.DraftResult) DraftResult {
	captains := make([]CaptainResult, len(r.Captains))
	for i, c := range r.Captains {
		players := c.Players
		if players == nil {
			players = []string{}
		}
		captains[i] = CaptainResult{ID: string(c.ID), Name: c.Name, Players: players}
	}
	unselected := r.Unselected
	if unselected == nil {
		unselected = []string{}
	}
	return DraftResult{
		ID:         string(r.SessionID),
		Captains:   captains,
		Unselected: unselected,
		Reason:     string(r.Reason),
		CreatedAt:  r.CreatedAt,
		ClosedAt:   r.ClosedAt,
	}
}
