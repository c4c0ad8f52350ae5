// Package arena owns per-arena state and lifecycle: the Arena exists
// from first-join to last-leave-plus-grace and exclusively owns its
// Freq table and player set, guarded by one non-recursive lock
// (spec.md §5 "Arena lock"). Balls, bricks and assets are held by their
// own engines, not by Arena.
package arena

import (
	"sync"

	"github.com/opensubspace/zonecore/internal/config"
	"github.com/opensubspace/zonecore/internal/model"
)

// Arena is a named game world with its own configuration snapshot and
// player set. Ball/Brick/Security/Asset subsystems attach their own
// state to it via the ExtraData slot registry (spec.md §9).
type Arena struct {
	mu sync.Mutex

	Name   string
	Config config.ServerConfig

	freqs     map[int]*model.Freq
	players   map[int]*model.Player
	specFreq  int

	ExtraData model.ExtraData
}

// New creates an Arena with a configuration snapshot and required
// freqs pre-populated per cfg.Team.RequiredTeams (spec.md §4.1 "Required
// teams always exist while the arena exists").
func New(name string, cfg config.ServerConfig) *Arena {
	a := &Arena{
		Name:     name,
		Config:   cfg,
		freqs:    make(map[int]*model.Freq),
		players:  make(map[int]*model.Player),
		specFreq: cfg.Team.MaxFrequency - 1,
	}
	for i := 0; i < cfg.Team.RequiredTeams; i++ {
		f := model.NewFreq(i)
		f.Required = true
		a.freqs[i] = f
	}
	return a
}

// Lock/Unlock expose the arena's single non-recursive mutex to
// subsystems that must mutate Freq/Ball/Brick state atomically with a
// broadcast (spec.md §5 "packets are sent under that lock").
func (a *Arena) Lock()   { a.mu.Lock() }
func (a *Arena) Unlock() { a.mu.Unlock() }

// SpecFreq is this arena's designated spectator freq.
func (a *Arena) SpecFreq() int { return a.specFreq }

// Freq returns the freq with the given number, creating it
// (unrequired, unremembered) if absent. Caller must hold the arena lock.
func (a *Arena) Freq(num int) *model.Freq {
	f, ok := a.freqs[num]
	if !ok {
		f = model.NewFreq(num)
		a.freqs[num] = f
	}
	return f
}

// FreqIfExists returns the freq with the given number without creating
// it. Caller must hold the arena lock.
func (a *Arena) FreqIfExists(num int) (*model.Freq, bool) {
	f, ok := a.freqs[num]
	return f, ok
}

// Freqs returns a snapshot slice of every tracked freq. Caller must
// hold the arena lock.
func (a *Arena) Freqs() []*model.Freq {
	out := make([]*model.Freq, 0, len(a.freqs))
	for _, f := range a.freqs {
		out = append(out, f)
	}
	return out
}

// DisbandEmptyFreqs removes every freq that is empty, not required,
// and not remembered (spec.md §4.1). Caller must hold the arena lock.
func (a *Arena) DisbandEmptyFreqs() {
	for num, f := range a.freqs {
		if f.Disbandable() {
			delete(a.freqs, num)
		}
	}
}

// AddPlayer registers a player as present in the arena.
func (a *Arena) AddPlayer(p *model.Player) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.players[p.ID] = p
}

// RemovePlayer removes a player from the arena's player set and from
// whatever freq it currently belongs to, disbanding the freq if it
// becomes empty and disbandable.
func (a *Arena) RemovePlayer(p *model.Player) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.players, p.ID)
	if f, ok := a.freqs[p.CurrentFreq()]; ok {
		f.Remove(p)
		if f.Disbandable() {
			delete(a.freqs, f.Num)
		}
	}
}

// Players returns a snapshot slice of every player currently in the arena.
func (a *Arena) Players() []*model.Player {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*model.Player, 0, len(a.players))
	for _, p := range a.players {
		out = append(out, p)
	}
	return out
}

// PlayerCount reports how many players are currently tracked.
func (a *Arena) PlayerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.players)
}
