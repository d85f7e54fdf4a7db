package session

import (
	"sort"
	"time"

	"github.com/karalama/karalama/internal/model"
)

// RosterEntry is one player as the presence tracker sees them. The roster is
// ephemeral and deliberately redundant with the persisted Connected flag:
// presence answers "who is here right now", the flag answers "who is still a
// member".
type RosterEntry struct {
	PlayerID   model.PlayerID `json:"playerId"`
	PlayerName string         `json:"playerName"`
	IsHost     bool           `json:"isHost"`
	Online     bool           `json:"online"`
	LastSeen   time.Time      `json:"lastSeen"`
}

// Roster tracks per-room presence from announcements on the presence topic.
// It is owned by the session loop and must only be touched from there.
type Roster struct {
	entries map[model.PlayerID]RosterEntry
}

func NewRoster() *Roster {
	return &Roster{entries: make(map[model.PlayerID]RosterEntry)}
}

// Sync replaces the whole roster
func (r *Roster) Sync(entries []RosterEntry) {
	r.entries = make(map[model.PlayerID]RosterEntry, len(entries))
	for _, e := range entries {
		r.entries[e.PlayerID] = e
	}
}

// Apply patches the roster from one presence announcement
func (r *Roster) Apply(p model.PresencePayload) {
	r.entries[p.PlayerID] = RosterEntry{
		PlayerID:   p.PlayerID,
		PlayerName: p.PlayerName,
		IsHost:     p.IsHost,
		Online:     p.Online,
		LastSeen:   p.LastSeen,
	}
}

// Leave drops a player from the roster entirely
func (r *Roster) Leave(id model.PlayerID) {
	delete(r.entries, id)
}

// Prune marks entries offline when their last announcement is older than
// staleAfter. Entries are kept so the roster still shows who dropped.
func (r *Roster) Prune(now time.Time, staleAfter time.Duration) {
	for id, e := range r.entries {
		if e.Online && now.Sub(e.LastSeen) > staleAfter {
			e.Online = false
			r.entries[id] = e
		}
	}
}

// Entries returns the roster sorted by player id for stable output
func (r *Roster) Entries() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// OnlineCount reports how many players are currently announcing
func (r *Roster) OnlineCount() int {
	n := 0
	for _, e := range r.entries {
		if e.Online {
			n++
		}
	}
	return n
}
