package model

import "encoding/json"

// RosterEntry is one player and the captain that owns them
type RosterEntry struct {
	Player string
	Owner  CaptainID
}

// MarshalJSON encodes the entry as a [player, owner] pair
func (e RosterEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Player, string(e.Owner)})
}

// UnmarshalJSON decodes a [player, owner] pair
func (e *RosterEntry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	e.Player = pair[0]
	e.Owner = CaptainID(pair[1])
	return nil
}

// Roster maps player names to owners, preserving first-insertion order
type Roster struct {
	order  []string
	owners map[string]CaptainID
}

// NewRoster creates an empty roster
func NewRoster() *Roster {
	return &Roster{owners: make(map[string]CaptainID)}
}

// Set records the owner of a player. Existing players keep their position.
func (r *Roster) Set(player string, owner CaptainID) {
	if _, ok := r.owners[player]; !ok {
		r.order = append(r.order, player)
	}
	r.owners[player] = owner
}

// Delete removes a player, returning false if they were not present
func (r *Roster) Delete(player string) bool {
	if _, ok := r.owners[player]; !ok {
		return false
	}
	delete(r.owners, player)
	for i, name := range r.order {
		if name == player {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Owner returns the owner of a player
func (r *Roster) Owner(player string) (CaptainID, bool) {
	owner, ok := r.owners[player]
	return owner, ok
}

// Len returns the number of players
func (r *Roster) Len() int {
	return len(r.order)
}

// Entries returns a copy of the roster in display order
func (r *Roster) Entries() []RosterEntry {
	entries := make([]RosterEntry, len(r.order))
	for i, name := range r.order {
		entries[i] = RosterEntry{Player: name, Owner: r.owners[name]}
	}
	return entries
}

// Tally counts picked players per captain. Every given captain appears in the result.
func (r *Roster) Tally(captains []CaptainID) map[CaptainID]int {
	tally := make(map[CaptainID]int, len(captains))
	for _, id := range captains {
		tally[id] = 0
	}
	for _, owner := range r.owners {
		if owner == Unselected {
			continue
		}
		tally[owner]++
	}
	return tally
}
