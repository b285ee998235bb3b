package draft

import (
	"fmt"
	"sort"

	"github.com/mcoot/captain-draft/internal/model"
)

// NextTurn picks the captain who should act next.
//
// Captains are ordered by pick count, ties keeping creation order. A captain
// strictly behind everyone else always gets the turn. When the lowest counts are
// tied, aggressive mode rotates to the captain after current in creation order
// and non-aggressive mode keeps current.
func NextTurn(order []model.CaptainID, tally map[model.CaptainID]int, current model.CaptainID, aggressive bool) (model.CaptainID, error) {
	if len(order) < 2 {
		return "", fmt.Errorf("%w: %d captains", model.ErrInsufficientCaptains, len(order))
	}

	ranked := make([]model.CaptainID, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return tally[ranked[i]] < tally[ranked[j]]
	})

	if tally[ranked[0]] < tally[ranked[1]] {
		return ranked[0], nil
	}
	if !aggressive {
		return current, nil
	}

	for i, id := range order {
		if id == current {
			return order[(i+1)%len(order)], nil
		}
	}
	return "", fmt.Errorf("%w: %q", model.ErrInconsistentTurn, current)
}
