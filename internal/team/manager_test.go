package team

import (
	"testing"

	"github.com/opensubspace/zonecore/internal/arena"
	"github.com/opensubspace/zonecore/internal/config"
	"github.com/opensubspace/zonecore/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T, cfg config.TeamConfig) *arena.Arena {
	t.Helper()
	sc := config.DefaultServerConfig()
	sc.Team = cfg
	return arena.New("test", sc)
}

func joinFreq(a *arena.Arena, freq int, n int, nextID *int) {
	a.Lock()
	defer a.Unlock()
	f := a.Freq(freq)
	for i := 0; i < n; i++ {
		*nextID++
		p := model.NewPlayer(*nextID, "p", model.ClientKindGameBinaryA)
		p.Ship = model.ShipWarbird
		p.Freq = freq
		f.Add(p)
	}
}

// S2 — Team balancer rejection: MaxPerTeam=3, ForceEvenTeams, MaxTeamDifference=1.
func TestCanChangeToFreq_RejectsOverpoweredTeam(t *testing.T) {
	cfg := DefaultConfigForTest()
	cfg.MaxPerTeam = 3
	cfg.ForceEvenTeams = true
	cfg.MaxTeamDifference = 1
	a := newTestArena(t, cfg)
	m := NewManager(cfg)

	nextID := 0
	joinFreq(a, 0, 3, &nextID)
	joinFreq(a, 1, 2, &nextID)

	nextID++
	pOnFreq1 := model.NewPlayer(nextID, "P", model.ClientKindGameBinaryA)
	pOnFreq1.Ship = model.ShipWarbird
	pOnFreq1.Freq = 1

	a.Lock()
	ok, reason := m.CanChangeToFreq(a, pOnFreq1, 0)
	a.Unlock()
	require.False(t, ok)
	require.NotEmpty(t, reason)

	nextID++
	qOnFreq2 := model.NewPlayer(nextID, "Q", model.ClientKindGameBinaryA)
	qOnFreq2.Ship = model.ShipWarbird
	qOnFreq2.Freq = 2

	a.Lock()
	ok, reason = m.CanChangeToFreq(a, qOnFreq2, 0)
	a.Unlock()
	require.False(t, ok)
	require.NotEmpty(t, reason)
}

func TestFreqChange_RejectsOutOfRangeFreq(t *testing.T) {
	cfg := DefaultConfigForTest()
	a := newTestArena(t, cfg)
	m := NewManager(cfg)

	p := model.NewPlayer(1, "p", model.ClientKindGameBinaryA)
	p.Ship = model.ShipWarbird
	p.Freq = 0

	a.Lock()
	freq, _, reason := m.FreqChange(a, p, cfg.MaxFrequency, model.ShipMask(0xFF))
	a.Unlock()

	require.Equal(t, 0, freq)
	require.Equal(t, "that frequency is not used", reason)
}

func TestInitialAppliesShipAndFreqToPlayerAndFreqIndexes(t *testing.T) {
	cfg := DefaultConfigForTest()
	a := newTestArena(t, cfg)
	m := NewManager(cfg)

	p := model.NewPlayer(1, "p", model.ClientKindGameBinaryA)

	a.Lock()
	ship, freq := m.Initial(a, p, model.ShipMask(0xFF), model.ShipWarbird)
	a.Unlock()

	require.Equal(t, model.ShipWarbird, ship)
	require.Equal(t, ship, p.CurrentShip())
	require.Equal(t, freq, p.CurrentFreq())

	f, ok := a.FreqIfExists(freq)
	require.True(t, ok)
	require.Contains(t, f.Players, p.ID)
}

func TestFreqChangeMovesPlayerBetweenFreqIndexes(t *testing.T) {
	cfg := DefaultConfigForTest()
	a := newTestArena(t, cfg)
	m := NewManager(cfg)

	p := model.NewPlayer(1, "p", model.ClientKindGameBinaryA)
	a.Lock()
	m.Apply(a, p, model.ShipWarbird, 0)

	freq, ship, reason := m.FreqChange(a, p, 1, model.ShipMask(0xFF))
	a.Unlock()

	require.Empty(t, reason)
	require.Equal(t, 1, freq)
	require.Equal(t, model.ShipWarbird, ship)
	require.Equal(t, 1, p.CurrentFreq())

	oldFreq, ok := a.FreqIfExists(0)
	require.True(t, ok, "freq 0 is required and stays even when empty")
	require.NotContains(t, oldFreq.Players, p.ID)

	newFreq, ok := a.FreqIfExists(1)
	require.True(t, ok)
	require.Contains(t, newFreq.Players, p.ID)
}

func TestFreqChangeRejectionLeavesPlayerUnmoved(t *testing.T) {
	cfg := DefaultConfigForTest()
	a := newTestArena(t, cfg)
	m := NewManager(cfg)

	p := model.NewPlayer(1, "p", model.ClientKindGameBinaryA)
	a.Lock()
	m.Apply(a, p, model.ShipWarbird, 0)

	_, _, reason := m.FreqChange(a, p, cfg.MaxFrequency, model.ShipMask(0xFF))
	a.Unlock()

	require.NotEmpty(t, reason)
	require.Equal(t, 0, p.CurrentFreq())

	f, ok := a.FreqIfExists(0)
	require.True(t, ok)
	require.Contains(t, f.Players, p.ID)
}

func TestShipChangeToSpecAppliesAssignment(t *testing.T) {
	cfg := DefaultConfigForTest()
	cfg.DisallowTeamSpectators = true
	a := newTestArena(t, cfg)
	m := NewManager(cfg)

	p := model.NewPlayer(1, "p", model.ClientKindGameBinaryA)
	a.Lock()
	m.Apply(a, p, model.ShipWarbird, 0)

	ship, freq, reason := m.ShipChange(a, p, model.ShipSpec, model.ShipMask(0xFF))
	a.Unlock()

	require.Empty(t, reason)
	require.Equal(t, model.ShipSpec, ship)
	require.Equal(t, a.SpecFreq(), freq)
	require.Equal(t, model.ShipSpec, p.CurrentShip())
	require.Equal(t, a.SpecFreq(), p.CurrentFreq())

	oldFreq, ok := a.FreqIfExists(0)
	require.True(t, ok)
	require.NotContains(t, oldFreq.Players, p.ID)
}

func DefaultConfigForTest() config.TeamConfig {
	cfg := config.DefaultTeamConfig()
	cfg.DesiredTeams = 2
	cfg.MaxFrequency = 100
	return cfg
}
