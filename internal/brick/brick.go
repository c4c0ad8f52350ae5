// Package brick implements the time-limited team-wall engine: a FIFO
// queue of active bricks per arena with a pluggable placement mode
// advisor and reliable+redundant resend (spec.md §4.3). Grounded on
// the teacher's spawn/manager.go capacity-cap/atomic-counter idiom,
// adapted from NPC spawning to a placement queue.
package brick

import (
	"sync"

	"github.com/opensubspace/zonecore/internal/config"
)

// Brick is one placed wall segment (spec.md §3).
type Brick struct {
	ID        uint16
	X1, Y1    int16
	X2, Y2    int16
	Freq      int16
	StartTick uint32
}

// ModeProvider computes the brick span(s) a placement request yields
// (spec.md §9 "Pluggable subsystems via registration tokens").
type ModeProvider interface {
	ComputeBricks(x, y int16, rotation8th int, lastRotationDelta int, span int16) []Brick
}

// Engine owns the per-arena brick FIFO.
type Engine struct {
	mu sync.Mutex

	cfg     config.BrickConfig
	queue   []*Brick
	nextID  uint16
	lastTick uint32
	mode    ModeProvider
}

func NewEngine(cfg config.BrickConfig, mode ModeProvider) *Engine {
	if mode == nil {
		mode = LateralMode{}
	}
	return &Engine{cfg: cfg, mode: mode}
}

// ExpireBricks pops every brick whose expiry (startTick+BrickTime) has
// passed as of now (spec.md §4.3 "Expiry").
func (e *Engine) ExpireBricks(now uint32) []Brick {
	e.mu.Lock()
	defer e.mu.Unlock()
	var expired []Brick
	i := 0
	for i < len(e.queue) && now >= e.queue[i].StartTick+uint32(e.cfg.BrickTime) {
		expired = append(expired, *e.queue[i])
		i++
	}
	e.queue = e.queue[i:]
	return expired
}

// Active returns a snapshot of every non-expired brick, queue order.
func (e *Engine) Active() []Brick {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Brick, len(e.queue))
	for i, b := range e.queue {
		out[i] = *b
	}
	return out
}

// Place implements spec.md §4.3 "Placement request": expires first,
// rejects the whole batch if it would overflow MaxActiveBricks,
// assigns a strictly-increasing tick, and enqueues. Returns the
// accepted bricks, or nil if the batch was rejected.
func (e *Engine) Place(now uint32, x, y int16, rotation8th, lastRotationDelta int, freq int16) []Brick {
	e.ExpireBricks(now)

	bricks := e.mode.ComputeBricks(x, y, rotation8th, lastRotationDelta, int16(e.cfg.BrickSpan))
	if len(bricks) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue)+len(bricks) > e.cfg.MaxActiveBricks {
		return nil
	}

	tick := now
	if e.lastTick+1 > tick {
		tick = e.lastTick + 1
	}

	accepted := make([]Brick, len(bricks))
	for i := range bricks {
		e.nextID++
		b := bricks[i]
		b.ID = e.nextID
		b.Freq = freq
		b.StartTick = tick
		e.lastTick = tick
		e.queue = append(e.queue, &b)
		accepted[i] = b
	}
	return accepted
}

// LateralMode is the default brick mode advisor (spec.md §4.3): it
// discretizes player rotation into eighths, maps near-cardinal
// rotations cleanly, tie-breaks exact 45-degree rotations by the sign
// of the last rotation delta, and grows a single brick outward from
// (x,y) by span tiles.
type LateralMode struct {
	// IsEmptyTile reports whether a tile is unoccupied; nil means every
	// tile is treated as empty (full span is always used).
	IsEmptyTile func(x, y int16) bool
}

func (m LateralMode) ComputeBricks(x, y int16, rotation8th int, lastRotationDelta int, span int16) []Brick {
	dx, dy := lateralDirection(rotation8th, lastRotationDelta)

	x2, y2 := x, y
	for i := int16(1); i <= span; i++ {
		cx, cy := x+dx*i, y+dy*i
		if m.IsEmptyTile != nil && !m.IsEmptyTile(cx, cy) {
			break
		}
		x2, y2 = cx, cy
	}
	return []Brick{{X1: x, Y1: y, X2: x2, Y2: y2}}
}

// lateralDirection maps an 8th-discretized rotation (0..39 in the
// source's 5-per-eighth granularity, collapsed here to 0..7) to a unit
// step. Exact diagonal ties break by the sign of lastRotationDelta.
func lateralDirection(rotation8th int, lastRotationDelta int) (int16, int16) {
	switch ((rotation8th % 8) + 8) % 8 {
	case 0:
		return 0, -1 // north
	case 1:
		if lastRotationDelta >= 0 {
			return 1, -1
		}
		return -1, -1
	case 2:
		return 1, 0 // east
	case 3:
		if lastRotationDelta >= 0 {
			return 1, 1
		}
		return 1, -1
	case 4:
		return 0, 1 // south
	case 5:
		if lastRotationDelta >= 0 {
			return -1, 1
		}
		return 1, 1
	case 6:
		return -1, 0 // west
	default:
		if lastRotationDelta >= 0 {
			return -1, -1
		}
		return -1, 1
	}
}
