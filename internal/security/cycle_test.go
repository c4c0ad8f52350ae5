package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S3 — Security kick: SecurityKickoff=true; P (no SuppressSecurity, no
// BypassSecurity) hasn't responded by check time -> flagged and kicked;
// Q with BypassSecurity is not kicked even if non-responsive.
func TestCheckPhaseAndKickGating(t *testing.T) {
	c := NewCycle(nil, nil, nil, nil)
	c.Switch(0)
	c.Send(1) // P
	c.Send(2) // Q

	flaggedP := c.Check(1, false)
	flaggedQ := c.Check(2, false)
	require.True(t, flaggedP)
	require.True(t, flaggedQ)

	require.True(t, ShouldKick(flaggedP, true, false))
	require.False(t, ShouldKick(flaggedQ, true, true)) // Q has BypassSecurity
}

func TestCheckPhaseSuppressedNeverFlagged(t *testing.T) {
	c := NewCycle(nil, nil, nil, nil)
	c.Switch(0)
	c.Send(1)
	require.False(t, c.Check(1, true))
}

func TestVerifyResponseRejectsUnexpected(t *testing.T) {
	c := NewCycle(nil, nil, nil, nil)
	c.Switch(0)
	_, unexpected := c.VerifyResponse(999, "arena1", false, 0, 0, 0, 0, 0)
	require.True(t, unexpected)
}

func TestVerifyResponseMatchesVIEChecksum(t *testing.T) {
	c := NewCycle(nil, nil, nil, nil)
	seeds := c.Switch(0)
	c.Send(1)

	ok, unexpected := c.VerifyResponse(1, "arena1", false, 0, 0, seeds.ExeSum, 0, 0)
	require.False(t, unexpected)
	require.True(t, ok)
}

func TestCancelPreventsFurtherCheck(t *testing.T) {
	c := NewCycle(nil, nil, nil, nil)
	c.Switch(0)
	c.Send(1)
	c.Cancel(1)
	require.False(t, c.Check(1, false))
}
