// Package security implements the periodic challenge-response
// anti-cheat cycle: seed rotation, per-player send/check phases, and
// response verification (spec.md §4.4). Grounded on the teacher's
// login/session_manager.go sync.Map-backed per-identity bookkeeping,
// adapted from session tokens to outstanding-challenge tracking.
package security

import (
	"encoding/binary"
	"math/rand/v2"
	"os"
	"sync"
)

// ScrtyEntry is one {key, continuumExeChecksum} pair from the scrty file.
type ScrtyEntry struct {
	Key               uint32
	ContinuumChecksum uint32
}

// LoadScrtyFile parses a scrty file of 1000 little-endian uint32 pairs
// (spec.md §6 "Persistent state"). Returns nil, nil if the file is
// absent — callers fall back to a random key and a zero exe checksum.
func LoadScrtyFile(path string) ([]ScrtyEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	const recSize = 8
	n := len(data) / recSize
	entries := make([]ScrtyEntry, 0, n)
	for i := 0; i < n; i++ {
		off := i * recSize
		entries = append(entries, ScrtyEntry{
			Key:               binary.LittleEndian.Uint32(data[off:]),
			ContinuumChecksum: binary.LittleEndian.Uint32(data[off+4:]),
		})
	}
	return entries, nil
}

// Seeds is one switch's green/door seeds, timestamp, and chosen key.
// ExeSum is the VIE-client checksum for this key (always computed);
// ContinuumSum is the scrty-table checksum for Continuum clients, zero
// when the scrty table is absent.
type Seeds struct {
	GreenSeed    uint32
	DoorSeed     uint32
	Timestamp    uint32
	Key          uint32
	ExeSum       uint32
	ContinuumSum uint32
}

// ArenaChecksummer computes a map checksum for an arena under a given
// key (spec.md §1 "the map-tile data provider" is the out-of-scope
// collaborator this interface stands in for).
type ArenaChecksummer interface {
	ChecksumOver(arenaName string, key uint32) uint32
}

// ClientSettingsChecksummer computes a settings checksum for a player
// under a given key (spec.md §1's "the config loader" collaborator).
type ClientSettingsChecksummer interface {
	ChecksumOver(playerID int, key uint32) uint32
}

// LagCollector receives per-response latency/weapon-count telemetry
// (spec.md §1's out-of-scope "broker/module lifecycle machinery"
// stands in for any downstream collector of this kind).
type LagCollector interface {
	Submit(playerID int, weaponCount, avgPing uint32)
}

// pendingChallenge tracks one outstanding request for one player.
type pendingChallenge struct {
	seeds     Seeds
	sent      bool
	cancelled bool
}

// Cycle drives the switch/send/check phases for one arena.
type Cycle struct {
	scrty []ScrtyEntry
	arenaChecksum ArenaChecksummer
	settingsChecksum ClientSettingsChecksummer
	lag   LagCollector

	mu        sync.Mutex
	current   Seeds
	override  *Seeds // replay/recorder override (spec.md §4.4 "Seed override")
	pending   map[int]*pendingChallenge
}

func NewCycle(scrty []ScrtyEntry, arenaChecksum ArenaChecksummer, settingsChecksum ClientSettingsChecksummer, lag LagCollector) *Cycle {
	return &Cycle{
		scrty:            scrty,
		arenaChecksum:    arenaChecksum,
		settingsChecksum: settingsChecksum,
		lag:              lag,
		pending:          make(map[int]*pendingChallenge),
	}
}

// Switch implements spec.md §4.4's 60s switch phase: draw new seeds,
// pick a (key, exeChecksum) pair from the scrty table (or synthesize
// one if absent), and record the new current seeds.
func (c *Cycle) Switch(now uint32) Seeds {
	c.mu.Lock()
	defer c.mu.Unlock()

	var key, exeSum uint32
	if len(c.scrty) > 0 {
		entry := c.scrty[rand.IntN(len(c.scrty))]
		key, exeSum = entry.Key, entry.ContinuumChecksum
	} else {
		key = rand.Uint32()
		exeSum = 0
	}

	c.current = Seeds{
		GreenSeed:    rand.Uint32(),
		DoorSeed:     rand.Uint32(),
		Timestamp:    now,
		Key:          key,
		ExeSum:       VIEExeChecksum(key),
		ContinuumSum: exeSum,
	}
	return c.current
}

// SetOverride installs a per-arena seed override (spec.md §4.4 "Seed
// override"). Send and Check do not consult the override themselves;
// Overridden reports it so the arena can be left out of the cycle.
func (c *Cycle) SetOverride(s *Seeds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.override = s
}

// Overridden reports whether this cycle currently has a recorder
// override installed.
func (c *Cycle) Overridden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.override != nil
}

// EntrySeeds returns the informational (key=0) packet every player
// gets on arena entry: the override seeds if installed, else the
// current global seeds with key forced to 0.
func (c *Cycle) EntrySeeds() Seeds {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.override != nil {
		s := *c.override
		s.Key = 0
		return s
	}
	s := c.current
	s.Key = 0
	s.ExeSum = 0
	return s
}

// Send implements spec.md §4.4's send phase: mark playerID as sent,
// uncancelled, and outstanding, returning the challenge to deliver.
// Send only records bookkeeping; the map checksum is computed later,
// in VerifyResponse.
func (c *Cycle) Send(playerID int) Seeds {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[playerID] = &pendingChallenge{seeds: c.current, sent: true}
	return c.current
}

// Check implements spec.md §4.4's check phase, run 15s after Send: a
// player still marked sent=true has not responded. Returns true if the
// player is malicious-unresponsive (suppressSecurity marks
// SuppressSecurity-capable players, who are never flagged).
func (c *Cycle) Check(playerID int, suppressSecurity bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[playerID]
	if !ok || !p.sent || p.cancelled {
		return false
	}
	return !suppressSecurity
}

// VerifyResponse implements spec.md §4.4's response handling: rejects
// unexpected responses, compares map/settings/exe checksums,
// and clears the outstanding challenge either way.
func (c *Cycle) VerifyResponse(playerID int, arenaName string, isContinuum bool, gotMap, gotSettings, gotExe uint32, weaponCount, avgPing uint32) (ok bool, unexpected bool) {
	c.mu.Lock()
	p, outstanding := c.pending[playerID]
	if outstanding {
		delete(c.pending, playerID)
	}
	expected := c.current
	c.mu.Unlock()

	if !outstanding || !p.sent {
		return false, true
	}

	mapOK := c.arenaChecksum == nil || gotMap == c.arenaChecksum.ChecksumOver(arenaName, expected.Key)
	settingsOK := c.settingsChecksum == nil || gotSettings == c.settingsChecksum.ChecksumOver(playerID, expected.Key)

	exeOK := true
	if isContinuum {
		if expected.ContinuumSum != 0 {
			exeOK = gotExe == expected.ContinuumSum
		}
	} else {
		exeOK = gotExe == expected.ExeSum
	}

	if c.lag != nil {
		c.lag.Submit(playerID, weaponCount, avgPing)
	}

	return mapOK && settingsOK && exeOK, false
}

// Cancel clears any outstanding challenge for a disconnecting player.
func (c *Cycle) Cancel(playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[playerID]; ok {
		p.cancelled = true
	}
}
