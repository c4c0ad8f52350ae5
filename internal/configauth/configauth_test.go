package configauth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfgauthg.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReloadParsesSectionAndSectionKeyEntries(t *testing.T) {
	path := writeConf(t, "# comment\nTeam\n\nSoccer:BallCount\n")
	f := NewFile(path)
	require.NoError(t, f.Reload())

	set := f.Current()
	require.True(t, set.IsRestricted("Team", "AnyKey"), "bare section restricts every key")
	require.True(t, set.IsRestricted("team", "anykey"), "lookups are case-insensitive")
	require.True(t, set.IsRestricted("Soccer", "BallCount"))
	require.False(t, set.IsRestricted("Soccer", "OtherKey"))
	require.False(t, set.IsRestricted("Brick", "MaxActive"))
}

func TestReloadSkipsUnchangedFile(t *testing.T) {
	path := writeConf(t, "Team\n")
	f := NewFile(path)
	require.NoError(t, f.Reload())
	first := f.Current()

	require.NoError(t, f.Reload())
	require.Same(t, first, f.Current(), "unchanged CRC must skip reparse")
}

func TestReloadInstallsChangedFile(t *testing.T) {
	path := writeConf(t, "Team\n")
	f := NewFile(path)
	require.NoError(t, f.Reload())

	require.NoError(t, os.WriteFile(path, []byte("Soccer\n"), 0o644))
	require.NoError(t, f.Reload())

	require.False(t, f.Current().IsRestricted("Team", "x"))
	require.True(t, f.Current().IsRestricted("Soccer", "x"))
}

func TestReloadMissingFileIsNotAnError(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.conf"))
	require.NoError(t, f.Reload())
	require.False(t, f.Current().IsRestricted("Team", "x"))
}

func TestAdvisorCombinesGlobalAndArenaSets(t *testing.T) {
	globalPath := writeConf(t, "Team\n")
	arenaPath := filepath.Join(t.TempDir(), "cfgautha.conf")
	require.NoError(t, os.WriteFile(arenaPath, []byte("Soccer:BallCount\n"), 0o644))

	a := NewAdvisor(globalPath, arenaPath)
	require.NoError(t, a.ReloadAll())

	require.True(t, a.IsRestricted("Team", "x"))
	require.True(t, a.IsRestricted("Soccer", "BallCount"))
	require.False(t, a.IsRestricted("Soccer", "OtherKey"))
}
