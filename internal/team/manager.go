// Package team implements the ship/freq manager: entry admission,
// ship changes, freq changes, and the default balancer, subject to
// pluggable enforcer advisors (spec.md §4.1).
package team

import (
	"strings"

	"github.com/opensubspace/zonecore/internal/arena"
	"github.com/opensubspace/zonecore/internal/config"
	"github.com/opensubspace/zonecore/internal/model"
)

// Balancer is the pluggable policy deciding per-player team weight and
// per-freq capacity (spec.md §4.1 "Balancer contract").
type Balancer interface {
	PlayerMetric(p *model.Player) int
	MaxMetric(cfg config.TeamConfig, freqNum int) int
	MaximumDifference(cfg config.TeamConfig) int
	FreqMetric(a *arena.Arena, freqNum int) int
}

// FreqEnforcer is a veto-capable advisor consulted by CanChangeToFreq
// (spec.md §9 "advisor veto chains"). A non-empty reason is a veto.
type FreqEnforcer interface {
	CanChangeFreq(a *arena.Arena, p *model.Player, targetFreq int) (ok bool, reason string)
}

// CanEnterGameAdvisor can veto a player's "can enter game" check,
// consulted from Initial and ShipChange.
type CanEnterGameAdvisor interface {
	CanEnterGame(a *arena.Arena, p *model.Player) (ok bool, reason string)
}

// Manager is the ship/freq decision engine; each method takes the
// Arena it acts on.
type Manager struct {
	cfg      config.TeamConfig
	balancer Balancer
	advisors []FreqEnforcer
	enterers []CanEnterGameAdvisor
}

// NewManager constructs a Manager with the default balancer; advisors
// are added with AddAdvisor / AddEnterAdvisor.
func NewManager(cfg config.TeamConfig) *Manager {
	return &Manager{cfg: cfg, balancer: defaultBalancer{}}
}

func (m *Manager) SetBalancer(b Balancer)             { m.balancer = b }
func (m *Manager) AddAdvisor(a FreqEnforcer)          { m.advisors = append(m.advisors, a) }
func (m *Manager) AddEnterAdvisor(a CanEnterGameAdvisor) { m.enterers = append(m.enterers, a) }

func (m *Manager) canEnterGame(a *arena.Arena, p *model.Player) (bool, string) {
	var reasons []string
	for _, e := range m.enterers {
		if ok, reason := e.CanEnterGame(a, p); !ok {
			reasons = append(reasons, reason)
		}
	}
	if len(reasons) > 0 {
		return false, strings.Join(reasons, "; ")
	}
	return true, ""
}

// CanChangeToFreq implements spec.md §4.1's policy (a)-(e). Caller
// must hold the arena lock.
func (m *Manager) CanChangeToFreq(a *arena.Arena, p *model.Player, targetFreq int) (bool, string) {
	if targetFreq < 0 || targetFreq >= m.cfg.MaxFrequency {
		return false, "that frequency is not used"
	}

	target := a.Freq(targetFreq)

	// (a) freq not full.
	maxMetric := m.balancer.MaxMetric(m.cfg, targetFreq)
	targetMetric := m.balancer.FreqMetric(a, targetFreq)
	playerMetric := m.balancer.PlayerMetric(p)
	if maxMetric > 0 && targetMetric+playerMetric > maxMetric {
		return false, "changing to that team would make it too powerful"
	}

	// (b)/(c) required-team-emptying rule (Open Question 1, see DESIGN.md):
	// leaving a required team that would become empty is blocked, except
	// when the destination is itself an empty required team.
	if current, ok := a.FreqIfExists(p.CurrentFreq()); ok && current.Required && current.Len() == 1 && current.Num != targetFreq && !(target.Required && target.Empty()) {
		return false, "that team must remain staffed"
	}

	// (e) difference to originating team and every balanced-against team.
	maxDiff := m.balancer.MaximumDifference(m.cfg)
	if maxDiff > 0 {
		for _, f := range a.Freqs() {
			if !f.BalancedAgainst && f.Num != p.CurrentFreq() {
				continue
			}
			if f.Num == targetFreq {
				continue
			}
			otherMetric := m.balancer.FreqMetric(a, f.Num)
			if (targetMetric+playerMetric)-otherMetric > maxDiff {
				return false, "changing to that team would unbalance the teams"
			}
		}
	}

	for _, adv := range m.advisors {
		if ok, reason := adv.CanChangeFreq(a, p, targetFreq); !ok {
			return false, reason
		}
	}
	return true, ""
}

// FindEntryFreq implements spec.md §4.1's two-scan algorithm. Caller
// must hold the arena lock.
func (m *Manager) FindEntryFreq(a *arena.Arena, p *model.Player) int {
	best := -1
	bestMetric := 0
	for i := 0; i < m.cfg.DesiredTeams; i++ {
		if ok, _ := m.CanChangeToFreq(a, p, i); !ok {
			continue
		}
		metric := m.balancer.FreqMetric(a, i)
		if best == -1 || metric < bestMetric {
			best = i
			bestMetric = metric
		}
	}
	if best != -1 {
		return best
	}

	for i := m.cfg.DesiredTeams; i < m.cfg.MaxFrequency; i++ {
		if ok, _ := m.CanChangeToFreq(a, p, i); ok {
			return i
		}
		if _, exists := a.FreqIfExists(i); !exists {
			break
		}
	}
	return a.SpecFreq()
}

// Apply moves p into the given ship/freq assignment: it updates the
// player's own Ship/Freq fields and the old/new Freq membership maps,
// then disbands any freq p just vacated if it's now empty and not
// required/remembered (spec.md §4.1 "the manager updates its Freq
// indexes accordingly"). Caller must hold the arena lock.
func (m *Manager) Apply(a *arena.Arena, p *model.Player, ship model.Ship, freq int) {
	if old, ok := a.FreqIfExists(p.CurrentFreq()); ok {
		old.Remove(p)
	}

	p.Mu.Lock()
	p.Ship = ship
	p.Freq = freq
	p.Mu.Unlock()

	a.Freq(freq).Add(p)
	a.DisbandEmptyFreqs()
}

// Initial decides the ship and freq assigned on arena entry (spec.md
// §4.1 "Initial") and applies it. Caller must hold the arena lock.
func (m *Manager) Initial(a *arena.Arena, p *model.Player, allowed model.ShipMask, requestedShip model.Ship) (model.Ship, int) {
	if m.cfg.InitialSpec {
		return m.applyInitial(a, p, model.ShipSpec, a.SpecFreq())
	}
	if ok, _ := m.canEnterGame(a, p); !ok {
		return m.applyInitial(a, p, model.ShipSpec, a.SpecFreq())
	}
	freq := m.FindEntryFreq(a, p)
	if freq == a.SpecFreq() {
		return m.applyInitial(a, p, model.ShipSpec, a.SpecFreq())
	}
	if allowed.Allows(requestedShip) {
		return m.applyInitial(a, p, requestedShip, freq)
	}
	if ship, ok := allowed.LowestAllowed(); ok {
		return m.applyInitial(a, p, ship, freq)
	}
	return m.applyInitial(a, p, model.ShipSpec, a.SpecFreq())
}

func (m *Manager) applyInitial(a *arena.Arena, p *model.Player, ship model.Ship, freq int) (model.Ship, int) {
	m.Apply(a, p, ship, freq)
	return ship, freq
}

// ShipChange handles a ship-change request (spec.md §4.1 "ShipChange")
// and applies it unless vetoed. Caller must hold the arena lock.
func (m *Manager) ShipChange(a *arena.Arena, p *model.Player, requestedShip model.Ship, allowed model.ShipMask) (model.Ship, int, string) {
	if requestedShip == model.ShipSpec {
		freq := p.CurrentFreq()
		if m.cfg.DisallowTeamSpectators {
			freq = a.SpecFreq()
		}
		return m.applyShipChange(a, p, model.ShipSpec, freq, "")
	}

	freq := p.CurrentFreq()
	if p.CurrentShip() == model.ShipSpec {
		if ok, reason := m.canEnterGame(a, p); !ok {
			return m.applyShipChange(a, p, model.ShipSpec, p.CurrentFreq(), reason)
		}
		if freq == a.SpecFreq() {
			freq = m.FindEntryFreq(a, p)
		}
	} else if !m.cfg.IncludeSpectators {
		if ok, reason := m.CanChangeToFreq(a, p, freq); !ok {
			return m.applyShipChange(a, p, p.CurrentShip(), p.CurrentFreq(), reason)
		}
	}

	current := p.CurrentShip()
	ship := current
	if !allowed.Allows(current) {
		var ok bool
		if ship, ok = allowed.LowestAllowed(); !ok {
			return m.applyShipChange(a, p, model.ShipSpec, a.SpecFreq(), "")
		}
	}
	return m.applyShipChange(a, p, ship, freq, "")
}

func (m *Manager) applyShipChange(a *arena.Arena, p *model.Player, ship model.Ship, freq int, reason string) (model.Ship, int, string) {
	if reason == "" {
		m.Apply(a, p, ship, freq)
	}
	return ship, freq, reason
}

// FreqChange handles a freq-change request (spec.md §4.1 "FreqChange")
// and applies it unless vetoed. Caller must hold the arena lock.
func (m *Manager) FreqChange(a *arena.Arena, p *model.Player, requestedFreq int, allowed model.ShipMask) (int, model.Ship, string) {
	if p.CurrentShip() == model.ShipSpec {
		return m.applyFreqChange(a, p, a.SpecFreq(), model.ShipSpec, "")
	}
	if requestedFreq < 0 || requestedFreq >= m.cfg.MaxFrequency {
		return m.applyFreqChange(a, p, p.CurrentFreq(), p.CurrentShip(), "that frequency is not used")
	}
	if ok, reason := m.CanChangeToFreq(a, p, requestedFreq); !ok {
		return m.applyFreqChange(a, p, p.CurrentFreq(), p.CurrentShip(), reason)
	}

	ship := p.CurrentShip()
	if m.cfg.DisallowTeamSpectators && p.CurrentShip() == model.ShipSpec {
		if !allowed.Allows(ship) {
			var ok bool
			if ship, ok = allowed.LowestAllowed(); !ok {
				return m.applyFreqChange(a, p, a.SpecFreq(), model.ShipSpec, "")
			}
		}
	} else if !allowed.Allows(ship) {
		var ok bool
		if ship, ok = allowed.LowestAllowed(); !ok {
			return m.applyFreqChange(a, p, requestedFreq, model.ShipSpec, "")
		}
	}
	return m.applyFreqChange(a, p, requestedFreq, ship, "")
}

func (m *Manager) applyFreqChange(a *arena.Arena, p *model.Player, freq int, ship model.Ship, reason string) (int, model.Ship, string) {
	if reason == "" {
		m.Apply(a, p, ship, freq)
	}
	return freq, ship, reason
}

type defaultBalancer struct{}

func (defaultBalancer) PlayerMetric(p *model.Player) int { return 1 }

func (defaultBalancer) MaxMetric(cfg config.TeamConfig, freqNum int) int {
	if freqNum >= cfg.PrivFreqStart && cfg.PrivFreqStart > 0 {
		return cfg.MaxPerPrivateTeam
	}
	return cfg.MaxPerTeam
}

func (defaultBalancer) MaximumDifference(cfg config.TeamConfig) int {
	if cfg.ForceEvenTeams {
		return cfg.MaxTeamDifference
	}
	return 0 // 0 means "no limit" for this balancer
}

func (defaultBalancer) FreqMetric(a *arena.Arena, freqNum int) int {
	if f, ok := a.FreqIfExists(freqNum); ok {
		return f.Len()
	}
	return 0
}
