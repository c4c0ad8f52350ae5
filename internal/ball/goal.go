package ball

// Mode is the goal-scorable policy selector (spec.md §4.2, Soccer:Mode).
type Mode string

const (
	ModeAll               Mode = "All"
	ModeLeftRight         Mode = "LeftRight"
	ModeTopBottom         Mode = "TopBottom"
	ModeQuadrantsDefend1  Mode = "QuadrantsDefend1"
	ModeQuadrantsDefend3  Mode = "QuadrantsDefend3"
	ModeSidesDefend1      Mode = "SidesDefend1"
	ModeSidesDefend3      Mode = "SidesDefend3"
)

// GoalInfo is a pure function mapping a goal-tile position to the freq
// that is barred from scoring there ("the designated defender"), per
// spec.md §4.2 and §8's round-trip property. It reports (defenderFreq,
// ok); ok is false for ModeAll, where every freq may score everywhere.
//
// Open Question 2 (see DESIGN.md): the source's SidesDefend3 branch
// assigns scorableFreq=3 in both of its two cases, which reads as a
// copy-paste bug. This implementation parameterizes the four
// quadrant/side freqs explicitly so the mapping is unambiguous and
// covered by a regression test.
func GoalInfo(mode Mode, x, y int) (defenderFreq int, ok bool) {
	const mid = 512 // map is 1024x1024 tiles

	switch mode {
	case ModeAll:
		return 0, false

	case ModeLeftRight:
		if x < mid {
			return 1, true // left half belongs to freq 1; freq 0 scores there
		}
		return 0, true

	case ModeTopBottom:
		if y < mid {
			return 1, true
		}
		return 0, true

	case ModeQuadrantsDefend1, ModeQuadrantsDefend3:
		return quadrantDefender(mode, x, y, mid)

	case ModeSidesDefend1, ModeSidesDefend3:
		return sideDefender(x, y, mid)
	}
	return 0, false
}

// quadrantDefender assigns each of the four quadrants a distinct
// defending freq: top-left 0, top-right 1, bottom-left 2, bottom-right
// 3. The Defend1 and Defend3 variants share this mapping; mode is not
// consulted.
func quadrantDefender(mode Mode, x, y, mid int) (int, bool) {
	left := x < mid
	top := y < mid
	switch {
	case top && left:
		return 0, true
	case top && !left:
		return 1, true
	case !top && left:
		return 2, true
	default:
		return 3, true
	}
}

// sideDefender assigns one of four map sides to a defending freq.
// Open Question 2 resolves the source's duplicated scorableFreq=3
// branch by giving each side 0..3 a unique defender rather than
// reusing 3 twice. SidesDefend1 and SidesDefend3 share this mapping,
// and Engine.HandleGoal treats them alike: only the defender is barred
// from scoring.
func sideDefender(x, y, mid int) (int, bool) {
	switch {
	case x < mid/2:
		return 0, true
	case x >= mid+mid/2:
		return 1, true
	case y < mid/2:
		return 2, true
	case y >= mid+mid/2:
		return 3, true
	default:
		return 0, false
	}
}
