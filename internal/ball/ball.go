// Package ball implements the authoritative ball state machine: up to
// 8 balls per arena, periodic broadcast, pickup/shoot/goal handling,
// and scoring policy (spec.md §4.2). Grounded on the teacher's
// spawn/manager.go capacity-cap and randomized-delay idioms, adapted
// to carryable-object semantics rather than NPC spawns.
package ball

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/opensubspace/zonecore/internal/config"
)

// State is one ball's lifecycle phase (spec.md §3).
type State int

const (
	StateOnMap State = iota
	StateCarried
	StateWaiting
)

const MaxBalls = 8

// MapTileProvider is the out-of-scope "map-tile data provider"
// collaborator spec.md §1 names; Ball Spawn asks it for the nearest
// empty tile to a candidate position.
type MapTileProvider interface {
	NearestEmptyTile(x, y int) (int, int, bool)
}

// GoalCallback fires once per accepted goal (spec.md §4.2 "Goal").
type GoalCallback func(ballID int, scoringFreq int)

// Ball is one ball's full mutable state. All mutation happens under
// the owning Arena's lock; see spec.md §5.
type Ball struct {
	ID        int
	State     State
	X, Y      int16
	XSpeed    int16
	YSpeed    int16
	CarrierID int // player id, -1 if none
	Freq      int
	Time      uint32 // tick map-state was entered; 0 when carried

	LastShooterID int // -1 if none

	lastKillerID          int
	lastKillerValidPickup uint32
	waitingUntil          uint32
}

// Engine owns every ball in one arena.
type Engine struct {
	mu sync.Mutex

	cfg    config.SoccerConfig
	mode   Mode
	balls  []*Ball
	tiles  MapTileProvider
	onGoal GoalCallback
}

// NewEngine builds an Engine with cfg.BallCount balls, all initially
// Waiting at tick 0 so the first periodic tick spawns them.
func NewEngine(cfg config.SoccerConfig, tiles MapTileProvider, onGoal GoalCallback) *Engine {
	count := cfg.BallCount
	if count > MaxBalls {
		count = MaxBalls
	}
	e := &Engine{cfg: cfg, mode: Mode(cfg.Mode), tiles: tiles, onGoal: onGoal}
	for i := 0; i < count; i++ {
		e.balls = append(e.balls, &Ball{ID: i, State: StateWaiting, CarrierID: -1, LastShooterID: -1, lastKillerID: -1})
	}
	return e
}

// Balls returns a snapshot of every ball in id order.
func (e *Engine) Balls() []Ball {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Ball, len(e.balls))
	for i, b := range e.balls {
		out[i] = *b
	}
	return out
}

func (e *Engine) ball(id int) *Ball {
	for _, b := range e.balls {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Tick advances every Waiting ball whose spawn time has arrived
// (spec.md §4.2 "Periodic task"). now is the current tick.
func (e *Engine) Tick(now uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.balls {
		if b.State == StateWaiting && now >= b.waitingUntil {
			e.spawnLocked(b, now)
		}
	}
}

// Pickup implements spec.md §4.2 "Pickup". The request's time field
// must equal the ball's recorded time or, for the player who last
// killed the carrier, the killer-valid-pickup time; currentTick is not
// consulted.
func (e *Engine) Pickup(ballID, playerID int, requestTime, currentTick uint32, alreadyCarrying bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.ball(ballID)
	if b == nil || b.State != StateOnMap || alreadyCarrying {
		return false
	}
	validTime := requestTime == b.Time
	if !validTime && b.lastKillerID == playerID && requestTime == b.lastKillerValidPickup {
		validTime = true
	}
	if !validTime {
		return false
	}
	b.State = StateCarried
	b.CarrierID = playerID
	b.XSpeed, b.YSpeed = 0, 0
	b.Time = 0
	b.lastKillerID = -1
	return true
}

// Shoot implements spec.md §4.2 "Shoot". isGoalTile lets the caller
// decide goal-tile membership using the external map collaborator;
// when true, HandleGoal fires inline to avoid the goal-packet race.
func (e *Engine) Shoot(ballID, playerID int, x, y, xSpeed, ySpeed int16, tick uint32, isGoalTile bool, freq int) bool {
	e.mu.Lock()
	b := e.ball(ballID)
	if b == nil || b.CarrierID != playerID {
		e.mu.Unlock()
		return false
	}
	b.State = StateOnMap
	b.X, b.Y = x, y
	b.XSpeed, b.YSpeed = xSpeed, ySpeed
	b.Time = tick
	b.CarrierID = -1
	b.LastShooterID = playerID
	e.mu.Unlock()

	if isGoalTile {
		e.HandleGoal(ballID, playerID, freq)
	}
	return true
}

// HandleGoal implements spec.md §4.2 "Goal": it verifies the caller
// still owns the ball, consults GoalInfo against the ball's current
// position under the engine's configured Mode, and either fires
// onGoal or leaves the ball's already-broadcast OnMap state standing
// when freq is the designated defender of this tile.
func (e *Engine) HandleGoal(ballID, playerID, freq int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.ball(ballID)
	if b == nil || b.State != StateOnMap || b.LastShooterID != playerID {
		return false
	}

	if defender, ok := GoalInfo(e.mode, int(b.X), int(b.Y)); ok && freq == defender {
		return false
	}

	if e.onGoal != nil {
		e.onGoal(ballID, freq)
	}

	if e.cfg.GoalDelay <= 0 {
		e.spawnLocked(b, 0)
		return true
	}

	b.X, b.Y = -1, -1
	b.Time = 0
	b.State = StateWaiting
	b.waitingUntil = uint32(e.cfg.GoalDelay)
	return true
}

// CleanupAfter implements spec.md §4.2 "Cleanup-after": drops every
// ball carried by playerID. leaving=true clears the carrier entirely;
// leaving=false (simple ship change) preserves the carrier so the same
// player can re-pick it up.
func (e *Engine) CleanupAfter(playerID int, leaving bool, tick uint32, killerIgnorePassDelayTicks uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.balls {
		if b.CarrierID != playerID || b.State != StateCarried {
			continue
		}
		b.State = StateOnMap
		b.Time = tick
		if leaving {
			b.CarrierID = -1
		}
		if killerIgnorePassDelayTicks > 0 {
			b.lastKillerID = playerID
			// Saturating subtraction per Open Question 3 (see DESIGN.md):
			// wrap-around on an unsigned tick minus a signed delay is
			// tightened here to clamp at zero instead of wrapping.
			if tick >= killerIgnorePassDelayTicks {
				b.lastKillerValidPickup = tick - killerIgnorePassDelayTicks
			} else {
				b.lastKillerValidPickup = 0
			}
		}
	}
}

// spawnLocked implements spec.md §4.2 "Spawn". Caller must hold e.mu.
func (e *Engine) spawnLocked(b *Ball, tick uint32) bool {
	if len(e.cfg.SpawnCenters) == 0 {
		b.State = StateWaiting
		return false
	}
	sp := e.cfg.SpawnCenters[b.ID%len(e.cfg.SpawnCenters)]

	angle := rand.Float64() * 2 * math.Pi
	r := rand.Float64() * float64(sp.Radius)
	x := sp.X + int(r*math.Cos(angle))
	y := sp.Y + int(r*math.Sin(angle))

	x = ((x % 1024) + 1024) % 1024
	y = ((y % 1024) + 1024) % 1024

	if e.tiles != nil {
		nx, ny, ok := e.tiles.NearestEmptyTile(x, y)
		if !ok {
			b.State = StateWaiting
			return false
		}
		x, y = nx, ny
	}

	jitter := rand.IntN(256)
	b.X = int16(x*16 + jitter%16)
	b.Y = int16(y*16 + jitter/16)
	b.XSpeed, b.YSpeed = 0, 0
	b.CarrierID = -1
	b.State = StateOnMap
	b.Time = tick
	b.LastShooterID = -1
	return true
}
