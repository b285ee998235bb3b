// Package draft holds the authoritative roster and turn state of one session.
// State is not safe for concurrent use; callers serialize access.
package draft

import (
	"fmt"

	"github.com/mcoot/captain-draft/internal/model"
)

// State is a session's draft: captains, roster and whose turn it is
type State struct {
	captains []model.Captain
	index    map[model.CaptainID]int
	roster   *model.Roster
	turn     model.CaptainID
}

// New creates a draft for the given captains. The first captain holds the turn.
func New(captains []model.Captain) (*State, error) {
	if len(captains) < 2 {
		return nil, model.ErrInsufficientCaptains
	}
	s := &State{
		captains: make([]model.Captain, len(captains)),
		index:    make(map[model.CaptainID]int, len(captains)),
		roster:   model.NewRoster(),
		turn:     captains[0].ID,
	}
	copy(s.captains, captains)
	for i, c := range captains {
		s.index[c.ID] = i
	}
	return s, nil
}

// Turn returns the captain entitled to pick
func (s *State) Turn() model.CaptainID {
	return s.turn
}

// Captains returns the captains in creation order
func (s *State) Captains() []model.Captain {
	out := make([]model.Captain, len(s.captains))
	copy(out, s.captains)
	return out
}

// Captain returns one captain by id
func (s *State) Captain(id model.CaptainID) (model.Captain, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Captain{}, false
	}
	return s.captains[i], true
}

// Entries returns the roster in display order
func (s *State) Entries() []model.RosterEntry {
	return s.roster.Entries()
}

// Tally returns the number of players owned by each captain
func (s *State) Tally() map[model.CaptainID]int {
	return s.roster.Tally(s.order())
}

// CaptainInfos returns the captainIds payload. Secrets are included only when withSecrets is set.
func (s *State) CaptainInfos(withSecrets bool) []model.CaptainInfo {
	infos := make([]model.CaptainInfo, len(s.captains))
	for i, c := range s.captains {
		infos[i] = model.CaptainInfo{Name: c.Name, ID: c.ID}
		if withSecrets {
			infos[i].Secret = c.Secret
		}
	}
	return infos
}

// Add puts a player in the pool. Re-adding an existing name keeps its position
// and returns it to the pool.
func (s *State) Add(player string) {
	s.roster.Set(player, model.Unselected)
}

// Remove deletes a player and recomputes the turn without forcing rotation.
// Removing an unknown player still recomputes.
func (s *State) Remove(player string) error {
	s.roster.Delete(player)
	return s.Recompute(false)
}

// Pick assigns an unselected player to the captain holding the turn, then
// rotates the turn.
func (s *State) Pick(captain model.CaptainID, player string) error {
	if captain != s.turn {
		return model.ErrNotCaptainTurn
	}
	owner, ok := s.roster.Owner(player)
	if !ok {
		return model.ErrPlayerNotFound
	}
	if owner != model.Unselected {
		return model.ErrPlayerTaken
	}
	s.roster.Set(player, captain)
	return s.Recompute(true)
}

// RenameCaptain changes a captain's display name
func (s *State) RenameCaptain(id model.CaptainID, name string) error {
	i, ok := s.index[id]
	if !ok {
		return model.ErrCaptainNotFound
	}
	s.captains[i].Name = name
	return nil
}

// ForcePick hands the turn to a captain regardless of fairness
func (s *State) ForcePick(id model.CaptainID) error {
	if _, ok := s.index[id]; !ok {
		return model.ErrCaptainNotFound
	}
	s.turn = id
	return nil
}

// Recompute updates the turn from the current tally
func (s *State) Recompute(aggressive bool) error {
	next, err := NextTurn(s.order(), s.Tally(), s.turn, aggressive)
	if err != nil {
		return fmt.Errorf("recompute turn: %w", err)
	}
	s.turn = next
	return nil
}

// Result summarises the draft for archiving
func (s *State) Result() ([]model.CaptainResult, []string) {
	captains := make([]model.CaptainResult, len(s.captains))
	for i, c := range s.captains {
		captains[i] = model.CaptainResult{ID: c.ID, Name: c.Name, Players: []string{}}
	}
	unselected := []string{}
	for _, entry := range s.roster.Entries() {
		if entry.Owner == model.Unselected {
			unselected = append(unselected, entry.Player)
			continue
		}
		i := s.index[entry.Owner]
		captains[i].Players = append(captains[i].Players, entry.Player)
	}
	return captains, unselected
}

func (s *State) order() []model.CaptainID {
	ids := make([]model.CaptainID, len(s.captains))
	for i, c := range s.captains {
		ids[i] = c.ID
	}
	return ids
}
