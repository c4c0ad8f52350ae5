package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsIdleAfterThreshold(t *testing.T) {
	tr := NewTracker(5 * time.Minute)
	start := time.Now()
	tr.Enter(1, "arena1", start)

	require.False(t, tr.IsIdle(1, start.Add(time.Minute)))
	require.True(t, tr.IsIdle(1, start.Add(6*time.Minute)))
}

func TestRecordActivityResetsIdleClock(t *testing.T) {
	tr := NewTracker(5 * time.Minute)
	start := time.Now()
	tr.Enter(1, "arena1", start)

	tr.RecordActivity(1, start.Add(4*time.Minute))
	require.False(t, tr.IsIdle(1, start.Add(8*time.Minute)))
}

func TestShouldGreetFiresOnceUntilNextEnter(t *testing.T) {
	tr := NewTracker(time.Minute)
	now := time.Now()
	tr.Enter(1, "arena1", now)

	require.True(t, tr.ShouldGreet(1))
	require.False(t, tr.ShouldGreet(1))

	tr.Enter(1, "arena2", now)
	require.True(t, tr.ShouldGreet(1))
}

func TestPeriodicDueOncePerTick(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.Enter(1, "arena1", time.Now())

	require.True(t, tr.PeriodicDue(1, 1))
	require.False(t, tr.PeriodicDue(1, 1))
	require.True(t, tr.PeriodicDue(1, 2))
}

func TestListFiltersByScopeAndIdleState(t *testing.T) {
	tr := NewTracker(5 * time.Minute)
	start := time.Now()
	tr.Enter(1, "arena1", start)
	tr.Enter(2, "arena1", start)
	tr.Enter(3, "arena2", start)

	tr.RecordActivity(1, start.Add(9*time.Minute))

	now := start.Add(10 * time.Minute)
	idleArena1 := tr.List(ScopeArena, "arena1", true, now)
	require.Equal(t, []int{2}, idleArena1)

	idleGlobal := tr.List(ScopeGlobal, "", true, now)
	require.ElementsMatch(t, []int{2, 3}, idleGlobal)
}

func TestLeaveRemovesBookkeeping(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.Enter(1, "arena1", time.Now())
	tr.Leave(1)
	require.False(t, tr.IsIdle(1, time.Now()))
	require.False(t, tr.ShouldGreet(1))
}
