package billing

import (
	"context"
	"testing"
	"time"

	"github.com/opensubspace/zonecore/internal/config"
	"github.com/opensubspace/zonecore/internal/protocol"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sent   [][]byte
	closed bool
}

func (f *fakeConn) Send(data []byte) error {
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}
func (f *fakeConn) Recv() ([]byte, error) { return nil, nil }
func (f *fakeConn) Close() error          { f.closed = true; return nil }

type fakeFallback struct {
	result protocol.UserLoginResponse
}

func (f fakeFallback) Authenticate(protocol.ServerLoginRequest) protocol.UserLoginResponse {
	return f.result
}

type fakeChat struct {
	arena   []string
	private []string
	channel []string
	squad   []string
}

func (f *fakeChat) SendArenaMessage(message string) { f.arena = append(f.arena, message) }
func (f *fakeChat) SendPrivate(targetUserID uint32, message string) {
	f.private = append(f.private, message)
}
func (f *fakeChat) SendChannelChat(target string, message string) {
	f.channel = append(f.channel, target+": "+message)
}
func (f *fakeChat) SendToSquad(squad string, message string) {
	f.squad = append(f.squad, squad+": "+message)
}

type fakeKick struct {
	playerID int
	reason   string
	kicked   bool
}

func (f *fakeKick) Kick(playerID int, reason string) {
	f.playerID, f.reason, f.kicked = playerID, reason, true
}

type fakeScoreStore struct {
	resetGroups []string
}

func (f *fakeScoreStore) SavePlayerScore(context.Context, string, string, protocol.PlayerScoreBlock) error {
	return nil
}
func (f *fakeScoreStore) LoadPlayerScore(context.Context, string, string) (*protocol.PlayerScoreBlock, bool, error) {
	return nil, false, nil
}
func (f *fakeScoreStore) ResetArenaGroup(_ context.Context, arenaGroup string) error {
	f.resetGroups = append(f.resetGroups, arenaGroup)
	return nil
}

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		Host:                      "127.0.0.1",
		Port:                      9010,
		RetryIntervalSeconds:      30,
		MaxPendingAuths:           15,
		MaxInterruptedAuths:       20,
		MaxConcurrentBannerUpload: 2,
	}
}

func newLoggedInClient(cfg config.BillingConfig) (*Client, *fakeConn) {
	c := NewClient(cfg, nil, nil, nil, nil, nil)
	conn := &fakeConn{}
	c.conn = conn
	c.state = StateLoggedIn
	return c, conn
}

func TestAuthenticateForwardsWhenLoggedIn(t *testing.T) {
	c, conn := newLoggedInClient(testBillingConfig())

	decision, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "player1"})
	require.NoError(t, err)
	require.True(t, decision.Forwarded)
	require.Equal(t, 1, c.PendingAuths())
	require.Len(t, conn.sent, 1)
}

func TestAuthenticateServerBusyWhenPendingWindowExceeded(t *testing.T) {
	cfg := testBillingConfig()
	cfg.MaxPendingAuths = 1
	c, _ := newLoggedInClient(cfg)

	_, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "p1"})
	require.NoError(t, err)

	decision, err := c.Authenticate(2, protocol.ServerLoginRequest{Name: "p2"})
	require.NoError(t, err)
	require.False(t, decision.Forwarded)
	require.NotNil(t, decision.Immediate)
	require.Equal(t, protocol.AuthResultServerBusy, decision.Immediate.Result)
}

func TestAuthenticateUsesFallbackWhenNotLoggedIn(t *testing.T) {
	fb := fakeFallback{result: protocol.UserLoginResponse{Result: protocol.AuthResultOK, UserID: 42}}
	c := NewClient(testBillingConfig(), nil, fb, nil, nil, nil)

	decision, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "p1"})
	require.NoError(t, err)
	require.False(t, decision.Forwarded)
	require.Equal(t, uint32(42), decision.Immediate.UserID)
}

func TestAuthenticateSynthesizesNotFoundWithoutFallback(t *testing.T) {
	c := NewClient(testBillingConfig(), nil, nil, nil, nil, nil)

	decision, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "p1"})
	require.NoError(t, err)
	require.False(t, decision.Forwarded)
	require.NotNil(t, decision.Immediate)
}

// S5 — Biller flapping: 3 auths pending, connection drops.
func TestHandleDisconnectFlapping(t *testing.T) {
	cfg := testBillingConfig()
	cfg.RetryIntervalSeconds = 30
	c, _ := newLoggedInClient(cfg)

	for id := 1; id <= 3; id++ {
		_, err := c.Authenticate(id, protocol.ServerLoginRequest{Name: "p"})
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.PendingAuths())

	now := time.Now()
	c.HandleDisconnect(now)

	require.Equal(t, StateRetry, c.State())
	require.Equal(t, 0, c.PendingAuths())
	require.Equal(t, 3, c.InterruptedAuths())

	// Before RetryInterval elapses, state stays Retry.
	c.Tick(now.Add(5 * time.Second))
	require.Equal(t, StateRetry, c.State())

	// After RetryInterval elapses, state transitions to NoSocket.
	c.Tick(now.Add(31 * time.Second))
	require.Equal(t, StateNoSocket, c.State())
}

func TestInterruptedAuthsHalveEveryTenSeconds(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	c.interruptedAuths = 8
	now := time.Now()
	c.lastDampen = now

	c.Tick(now.Add(11 * time.Second))
	require.Equal(t, 4, c.InterruptedAuths())

	c.Tick(now.Add(22 * time.Second))
	require.Equal(t, 2, c.InterruptedAuths())
}

func TestCancelAuthMovesToInterrupted(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	_, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "p"})
	require.NoError(t, err)

	c.CancelAuth(1)
	require.Equal(t, 0, c.PendingAuths())
	require.Equal(t, 1, c.InterruptedAuths())

	ok := c.CompleteAuth(1, protocol.UserLoginResponse{Result: protocol.AuthResultOK})
	require.False(t, ok, "no response should be dispatched for a cancelled auth")
}

func TestCompleteAuthMarksKnownToBiller(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	_, err := c.Authenticate(7, protocol.ServerLoginRequest{Name: "p"})
	require.NoError(t, err)

	ok := c.CompleteAuth(7, protocol.UserLoginResponse{Result: protocol.AuthResultOK, UserID: 99})
	require.True(t, ok)

	userID, known := c.KnownToBiller(7)
	require.True(t, known)
	require.Equal(t, uint32(99), userID)
}

func TestLogoffSendsScoreBlockWhenPresent(t *testing.T) {
	c, conn := newLoggedInClient(testBillingConfig())
	c.knownToBiller[3] = 55

	score := protocol.PlayerScoreBlock{Kills: 10, Deaths: 2}
	require.NoError(t, c.Logoff(3, &score))
	require.Len(t, conn.sent, 1)

	_, known := c.KnownToBiller(3)
	require.False(t, known, "logoff should clear knownToBiller")
}

func TestShutdownReturnsImmediatelyWithoutConnection(t *testing.T) {
	c := NewClient(testBillingConfig(), nil, nil, nil, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
	require.Equal(t, StateDisabled, c.State())
}

func TestDisableThenEnableAllowsReconnect(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	c.Disable()
	require.Equal(t, StateDisabled, c.State())

	_, err := c.Authenticate(1, protocol.ServerLoginRequest{})
	require.NoError(t, err)

	c.Enable()
	require.Equal(t, StateNoSocket, c.State())
}

func TestHandleInboundUserLoginResolvesOldestPendingAuthFIFO(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	_, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "p1"})
	require.NoError(t, err)
	_, err = c.Authenticate(2, protocol.ServerLoginRequest{Name: "p2"})
	require.NoError(t, err)

	raw := encodeTestUserLoginResponse(protocol.UserLoginResponse{Result: protocol.AuthResultOK, UserID: 77})

	require.NoError(t, c.HandleInbound(context.Background(), raw))
	require.Equal(t, 1, c.PendingAuths(), "only the oldest (playerID 1) should resolve")

	userID, known := c.KnownToBiller(1)
	require.True(t, known)
	require.Equal(t, uint32(77), userID)

	_, known = c.KnownToBiller(2)
	require.False(t, known)
}

func TestHandleInboundUserLoginSkipsCancelledEntries(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	_, err := c.Authenticate(1, protocol.ServerLoginRequest{Name: "p1"})
	require.NoError(t, err)
	_, err = c.Authenticate(2, protocol.ServerLoginRequest{Name: "p2"})
	require.NoError(t, err)

	c.CancelAuth(1)

	raw := encodeTestUserLoginResponse(protocol.UserLoginResponse{Result: protocol.AuthResultOK, UserID: 5})
	require.NoError(t, c.HandleInbound(context.Background(), raw))

	userID, known := c.KnownToBiller(2)
	require.True(t, known, "the FIFO pop must skip playerID 1, which was cancelled")
	require.Equal(t, uint32(5), userID)
}

func TestHandleInboundUserKickoutDispatchesToKickSink(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	kick := &fakeKick{}
	c.kick = kick
	c.knownToBiller[3] = 88

	w := protocol.NewWriter(1 + 4 + 64)
	w.U8(protocol.BillingOpUserKickout)
	w.U32(88)
	w.FixedString("banned by staff", 64)

	require.NoError(t, c.HandleInbound(context.Background(), w.Bytes()))
	require.True(t, kick.kicked)
	require.Equal(t, 3, kick.playerID)
	require.Equal(t, "banned by staff", kick.reason)
}

func TestHandleInboundScoreResetDelegatesToScoreStore(t *testing.T) {
	store := &fakeScoreStore{}
	c := NewClient(testBillingConfig(), nil, nil, store, nil, nil)

	w := protocol.NewWriter(1 + 32)
	w.U8(protocol.BillingOpScoreReset)
	w.FixedString("public", 32)

	require.NoError(t, c.HandleInbound(context.Background(), w.Bytes()))
	require.Equal(t, []string{"public"}, store.resetGroups)
}

func TestHandleInboundChatDownlinksRouteToChatSink(t *testing.T) {
	chat := &fakeChat{}
	c := NewClient(testBillingConfig(), nil, nil, nil, chat, nil)

	encodeRelay := func(op byte, targetUserID uint32, target, message string) []byte {
		w := protocol.NewWriter(1 + 4 + 24 + 250)
		w.U8(op)
		w.U32(targetUserID)
		w.FixedString(target, 24)
		w.FixedString(message, 250)
		return w.Bytes()
	}

	require.NoError(t, c.HandleInbound(context.Background(), encodeRelay(protocol.BillingOpUserPrivateChatDown, 1, "", "hi there")))
	require.Equal(t, []string{"hi there"}, chat.private)

	require.NoError(t, c.HandleInbound(context.Background(), encodeRelay(protocol.BillingOpUserChannelChatDown, 0, "general", "hello all")))
	require.Equal(t, []string{"general: hello all"}, chat.channel)

	require.NoError(t, c.HandleInbound(context.Background(), encodeRelay(protocol.BillingOpUserMulticastChannelChat, 0, "squadA", "rally")))
	require.Equal(t, []string{"squadA: rally"}, chat.squad)

	require.NoError(t, c.HandleInbound(context.Background(), encodeRelay(protocol.BillingOpUserCommandChat, 0, "", "server notice")))
	require.Equal(t, []string{"server notice"}, chat.arena)
}

func TestHandleInboundUnknownOpcodeIsIgnored(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	require.NoError(t, c.HandleInbound(context.Background(), []byte{0xFF, 1, 2, 3}))
}

func TestHandleInboundEmptyPacketErrors(t *testing.T) {
	c, _ := newLoggedInClient(testBillingConfig())
	require.Error(t, c.HandleInbound(context.Background(), nil))
}

func encodeTestUserLoginResponse(resp protocol.UserLoginResponse) []byte {
	w := protocol.NewWriter(1 + 4 + 4 + 4 + 24 + 24 + 1 + 1)
	w.U8(protocol.BillingOpUserLogin)
	w.U8(uint8(resp.Result))
	w.U32(resp.UserID)
	w.U32(resp.FirstLogin)
	w.U32(resp.Usage)
	w.FixedString(resp.Name, 24)
	w.FixedString(resp.Squad, 24)
	w.U8(0) // no banner
	w.U8(0) // no score block
	return w.Bytes()
}
