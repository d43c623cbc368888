package engine

import (
	"sort"

	"tickwyrm/internal/wire"
)

// QualifyingPlayer is the subset of server-side Player state the engine
// needs to decide who starts the next game. The connection table (owned by
// the gameserver package) is responsible for filtering to ready,
// non-empty-named players before calling SelectRoster.
type QualifyingPlayer struct {
	Name      string
	SessionID uint64
}

// SelectRoster orders candidates by name ascending (ties by session-id
// ascending), drops later duplicates of a name, and trims the tail so the
// resulting NEW_GAME event fits in one datagram. It returns nil if fewer
// than two players remain after trimming.
func SelectRoster(candidates []QualifyingPlayer) []QualifyingPlayer {
	ordered := make([]QualifyingPlayer, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Name != ordered[j].Name {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].SessionID < ordered[j].SessionID
	})

	seen := make(map[string]bool, len(ordered))
	deduped := ordered[:0]
	for _, c := range ordered {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		deduped = append(deduped, c)
	}

	roster := fitToDatagram(deduped)
	if len(roster) < 2 {
		return nil
	}
	return roster
}

// fitToDatagram drops candidates from the tail until the NEW_GAME payload
// they'd produce fits in one MaxDatagramSize datagram.
func fitToDatagram(candidates []QualifyingPlayer) []QualifyingPlayer {
	payload := 8 // maxx + maxy
	for i, c := range candidates {
		payload += len(c.Name) + 1
		if !wire.FitsInDatagram(payload) {
			return candidates[:i]
		}
	}
	return candidates
}
