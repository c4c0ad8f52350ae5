package billing

// State is the billing client's connection lifecycle (spec.md §4.7):
//
//	NoSocket -> Connecting -> WaitLogin -> LoggedIn -> Retry -> NoSocket
//	any -> Disabled (admin drop or fatal config error, no auto-retry)
type State int32

const (
	StateNoSocket State = iota
	StateConnecting
	StateWaitLogin
	StateLoggedIn
	StateRetry
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateNoSocket:
		return "NoSocket"
	case StateConnecting:
		return "Connecting"
	case StateWaitLogin:
		return "WaitLogin"
	case StateLoggedIn:
		return "LoggedIn"
	case StateRetry:
		return "Retry"
	case StateDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}
