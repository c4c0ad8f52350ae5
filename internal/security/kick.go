package security

// ShouldKick implements spec.md §4.4's "Check phase" / "Response
// handling" gating: a player flagged unresponsive or checksum-mismatched
// is only actually kicked if kickoffEnabled and the player lacks
// BypassSecurity.
func ShouldKick(flagged bool, kickoffEnabled bool, bypassSecurity bool) bool {
	return flagged && kickoffEnabled && !bypassSecurity
}
