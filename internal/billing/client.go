// Package billing implements the zone server's reliable link to a
// single upstream user-database server (spec.md §4.7): an IAuth
// gatekeeper, auth-completion mapping, chat/command relay, banner
// upload buffering, and score persistence hookup. Grounded on the
// teacher's gslistener package for its per-connection state machine
// and cipher-wrapped framing (internal/gslistener/connection.go,
// handler.go), with the roles reversed: this package dials out to a
// single remote server rather than accepting many inbound ones.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensubspace/zonecore/internal/config"
	"github.com/opensubspace/zonecore/internal/constants"
	"github.com/opensubspace/zonecore/internal/protocol"
)

// LinkConn is the encrypted, reliable transport to the biller. A real
// implementation wraps a TCP or reliable-UDP socket with the
// internal/crypto Blowfish cipher; tests substitute an in-memory fake.
type LinkConn interface {
	Send(data []byte) error
	Recv() ([]byte, error)
	Close() error
}

// Dialer opens a new LinkConn to the configured biller address.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (LinkConn, error)
}

// FallbackAuthenticator resolves a login locally when the biller link
// is unusable (spec.md §4.7 "if a fallback authenticator is
// available, delegate to it").
type FallbackAuthenticator interface {
	Authenticate(req protocol.ServerLoginRequest) protocol.UserLoginResponse
}

// ScoreStore is the narrow slice of the persistence layer the billing
// client needs: snapshot-on-leave, load-on-login, and reset-on-demand
// (spec.md §4.7 "Score persistence" / "Score-reset").
type ScoreStore interface {
	SavePlayerScore(ctx context.Context, playerID, arenaGroup string, score protocol.PlayerScoreBlock) error
	LoadPlayerScore(ctx context.Context, playerID, arenaGroup string) (*protocol.PlayerScoreBlock, bool, error)
	ResetArenaGroup(ctx context.Context, arenaGroup string) error
}

// ChatSink delivers biller-originated chat to targeted players
// (spec.md §4.7 "Chat relay").
type ChatSink interface {
	SendArenaMessage(message string)
	SendPrivate(targetUserID uint32, message string)
	SendChannelChat(target string, message string)
	SendToSquad(squad string, message string)
}

// KickSink disconnects a player at the biller's demand (spec.md §4.7
// "Kickout": the biller can force a player off without waiting for the
// next login attempt).
type KickSink interface {
	Kick(playerID int, reason string)
}

// pendingAuth tracks one in-flight IAuth call forwarded to the biller.
type pendingAuth struct {
	playerID int
	sentAt   time.Time
}

// AuthDecision is the gatekeeper's verdict for one login attempt.
type AuthDecision struct {
	// Forwarded is true when the request was sent to the biller; the
	// caller must wait for CompleteAuth to resolve it.
	Forwarded bool
	// Immediate is set when Forwarded is false: a synchronous result
	// from ServerBusy, the fallback authenticator, or the synthesized
	// not-found outcome.
	Immediate *protocol.UserLoginResponse
}

// Client is the billing link's state machine and gatekeeper. All
// fields are guarded by mu (spec.md §5 "Billing client lock").
type Client struct {
	cfg      config.BillingConfig
	dialer   Dialer
	fallback FallbackAuthenticator
	scores   ScoreStore
	chat     ChatSink
	kick     KickSink

	mu                sync.Mutex
	state             State
	conn              LinkConn
	pendingAuths      map[int]*pendingAuth
	pendingOrder      []int // playerIDs in the order their auths were forwarded
	interruptedAuths  int
	lastDampen        time.Time
	retryDeadline     time.Time
	lastKeepalive     time.Time
	bannerQueue       map[int][][]byte
	bannerInFlight    int
	knownToBiller     map[int]uint32 // playerID -> userID
	disconnectWaiters []chan struct{}
}

func NewClient(cfg config.BillingConfig, dialer Dialer, fallback FallbackAuthenticator, scores ScoreStore, chat ChatSink, kick KickSink) *Client {
	return &Client{
		cfg:           cfg,
		dialer:        dialer,
		fallback:      fallback,
		scores:        scores,
		chat:          chat,
		kick:          kick,
		state:         StateNoSocket,
		pendingAuths:  make(map[int]*pendingAuth),
		bannerQueue:   make(map[int][][]byte),
		knownToBiller: make(map[int]uint32),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conn returns the current LinkConn, or nil when disconnected. Callers
// drive a read loop off this to feed HandleInbound.
func (c *Client) Conn() LinkConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Connect attempts to dial the biller. On success the state advances
// to WaitLogin; the caller is responsible for driving Recv() on the
// returned LinkConn's frames into HandleInbound.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDisabled {
		c.mu.Unlock()
		return fmt.Errorf("billing client is disabled")
	}
	if c.cfg.Host == "" || c.cfg.Port <= 0 {
		c.state = StateDisabled
		c.mu.Unlock()
		return fmt.Errorf("invalid biller address %q:%d", c.cfg.Host, c.cfg.Port)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.cfg.Host, c.cfg.Port)
	if err != nil {
		c.mu.Lock()
		c.state = StateRetry
		c.retryDeadline = time.Now().Add(time.Duration(c.cfg.RetryIntervalSeconds) * time.Second)
		c.mu.Unlock()
		return fmt.Errorf("dialing biller: %w", err)
	}

	if err := conn.Send(protocol.EncodeSimpleBillingOp(protocol.BillingOpServerConnect)); err != nil {
		conn.Close()
		return fmt.Errorf("sending ServerConnect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateWaitLogin
	c.lastKeepalive = time.Now()
	c.mu.Unlock()
	return nil
}

// MarkLoggedIn transitions WaitLogin -> LoggedIn on the first inbound
// packet (or after the caller's own 5s timeout policy).
func (c *Client) MarkLoggedIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateWaitLogin {
		c.state = StateLoggedIn
	}
}

// HandleDisconnect implements the S5 "biller flapping" transition:
// in-flight auths become interrupted (no callback ever fires for
// them), and the client schedules a retry.
func (c *Client) HandleDisconnect(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisabled {
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.interruptedAuths += len(c.pendingAuths)
	c.pendingAuths = make(map[int]*pendingAuth)
	c.pendingOrder = nil
	c.state = StateRetry
	c.retryDeadline = now.Add(time.Duration(c.cfg.RetryIntervalSeconds) * time.Second)
	for _, ch := range c.disconnectWaiters {
		close(ch)
	}
	c.disconnectWaiters = nil
}

// Tick drives time-based transitions: Retry -> NoSocket after
// RetryInterval, and halving the interrupted-auth counter every 10s
// (spec.md §4.7 "Interrupted-auth dampening").
func (c *Client) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRetry && !now.Before(c.retryDeadline) {
		c.state = StateNoSocket
	}

	if c.lastDampen.IsZero() {
		c.lastDampen = now
	}
	dampenInterval := time.Duration(constants.InterruptedAuthDecaySeconds) * time.Second
	if now.Sub(c.lastDampen) >= dampenInterval {
		c.interruptedAuths /= 2
		c.lastDampen = now
	}
}

// PendingAuths reports the current in-flight forwarded-auth count.
func (c *Client) PendingAuths() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pendingAuths)
}

// InterruptedAuths reports the dampened interrupted-auth counter.
func (c *Client) InterruptedAuths() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interruptedAuths
}

// Authenticate is the IAuth gatekeeper every player's login call is
// routed through (spec.md §4.7 "Gatekeeper for IAuth").
func (c *Client) Authenticate(playerID int, req protocol.ServerLoginRequest) (AuthDecision, error) {
	c.mu.Lock()

	if c.state == StateLoggedIn {
		if len(c.pendingAuths) >= c.cfg.MaxPendingAuths || c.interruptedAuths >= c.cfg.MaxInterruptedAuths {
			c.mu.Unlock()
			return AuthDecision{Immediate: &protocol.UserLoginResponse{Result: protocol.AuthResultServerBusy}}, nil
		}
		conn := c.conn
		c.pendingAuths[playerID] = &pendingAuth{playerID: playerID, sentAt: time.Now()}
		c.pendingOrder = append(c.pendingOrder, playerID)
		c.mu.Unlock()

		if conn == nil {
			return AuthDecision{}, fmt.Errorf("billing client logged in with no connection")
		}
		if err := conn.Send(protocol.EncodeServerLoginRequest(req)); err != nil {
			c.mu.Lock()
			delete(c.pendingAuths, playerID)
			c.mu.Unlock()
			return AuthDecision{}, fmt.Errorf("forwarding login to biller: %w", err)
		}
		return AuthDecision{Forwarded: true}, nil
	}
	c.mu.Unlock()

	if c.fallback != nil {
		resp := c.fallback.Authenticate(req)
		return AuthDecision{Immediate: &resp}, nil
	}
	return AuthDecision{Immediate: &protocol.UserLoginResponse{Result: protocol.AuthResultBadName}}, nil
}

// CompleteAuth resolves a forwarded auth call with the biller's
// response, clearing the pending entry. ok is false if no such
// pending auth exists (e.g. the player already disconnected and
// HandleDisconnect/CancelAuth already cleared it).
func (c *Client) CompleteAuth(playerID int, resp protocol.UserLoginResponse) (ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.pendingAuths[playerID]; !found {
		return false
	}
	delete(c.pendingAuths, playerID)
	if resp.Result == protocol.AuthResultOK || resp.Result == protocol.AuthResultAskDemographics {
		c.knownToBiller[playerID] = resp.UserID
	}
	return true
}

// CancelAuth implements spec.md §5's disconnect-during-auth
// cancellation: the pending count is decremented and the interrupted
// count is incremented; no response is ever dispatched afterward.
func (c *Client) CancelAuth(playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.pendingAuths[playerID]; found {
		delete(c.pendingAuths, playerID)
		c.interruptedAuths++
	}
}

// KnownToBiller reports whether playerID completed a successful auth
// and its biller-assigned userID.
func (c *Client) KnownToBiller(playerID int) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	userID, ok := c.knownToBiller[playerID]
	return userID, ok
}

// playerForUserID reverse-looks-up a biller userID back to the local
// playerID. Caller must hold c.mu.
func (c *Client) playerForUserID(userID uint32) (int, bool) {
	for playerID, uid := range c.knownToBiller {
		if uid == userID {
			return playerID, true
		}
	}
	return 0, false
}

// popPendingAuth dequeues the oldest still-pending forwarded auth. The
// biller answers UserLogin requests on the same connection in the order
// they were sent, so FIFO order is how the response packet (which
// carries no playerID of its own) is correlated back to a caller
// (spec.md §4.7 "Gatekeeper for IAuth"). Entries left behind by
// CancelAuth are skipped since they're no longer in pendingAuths.
func (c *Client) popPendingAuth() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pendingOrder) > 0 {
		playerID := c.pendingOrder[0]
		c.pendingOrder = c.pendingOrder[1:]
		if _, ok := c.pendingAuths[playerID]; ok {
			return playerID, true
		}
	}
	return 0, false
}

// HandleInbound decodes and dispatches one downlink packet received from
// the biller (spec.md §4.7 and §6's downlink opcodes). The caller drives
// this from a loop over the LinkConn's Recv().
func (c *Client) HandleInbound(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty billing packet")
	}
	op, body := raw[0], raw[1:]

	switch op {
	case protocol.BillingOpUserLogin:
		resp, err := protocol.DecodeUserLoginResponse(body)
		if err != nil {
			return fmt.Errorf("decoding UserLogin response: %w", err)
		}
		playerID, ok := c.popPendingAuth()
		if !ok {
			return fmt.Errorf("UserLogin response with no matching pending auth")
		}
		c.CompleteAuth(playerID, resp)
		return nil

	case protocol.BillingOpUserKickout:
		n, err := protocol.DecodeUserKickoutNotice(body)
		if err != nil {
			return fmt.Errorf("decoding UserKickout: %w", err)
		}
		c.mu.Lock()
		playerID, found := c.playerForUserID(n.UserID)
		c.mu.Unlock()
		if found && c.kick != nil {
			c.kick.Kick(playerID, n.Reason)
		}
		return nil

	case protocol.BillingOpScoreReset:
		n, err := protocol.DecodeScoreResetNotice(body)
		if err != nil {
			return fmt.Errorf("decoding ScoreReset: %w", err)
		}
		return c.ResetScores(ctx, []string{n.ArenaGroup})

	case protocol.BillingOpUserPrivateChatDown:
		n, err := protocol.DecodeChatRelayNotice(body)
		if err != nil {
			return fmt.Errorf("decoding UserPrivateChat: %w", err)
		}
		if c.chat != nil {
			c.chat.SendPrivate(n.TargetUserID, n.Message)
		}
		return nil

	case protocol.BillingOpUserChannelChatDown:
		n, err := protocol.DecodeChatRelayNotice(body)
		if err != nil {
			return fmt.Errorf("decoding UserChannelChat: %w", err)
		}
		if c.chat != nil {
			c.chat.SendChannelChat(n.Target, n.Message)
		}
		return nil

	case protocol.BillingOpUserMulticastChannelChat:
		n, err := protocol.DecodeChatRelayNotice(body)
		if err != nil {
			return fmt.Errorf("decoding UserMulticastChannelChat: %w", err)
		}
		if c.chat != nil {
			c.chat.SendToSquad(n.Target, n.Message)
		}
		return nil

	case protocol.BillingOpUserCommandChat:
		n, err := protocol.DecodeChatRelayNotice(body)
		if err != nil {
			return fmt.Errorf("decoding UserCommandChat: %w", err)
		}
		if c.chat != nil {
			c.chat.SendArenaMessage(n.Message)
		}
		return nil

	case protocol.BillingOpBillingIdentity:
		if _, err := protocol.DecodeBillingIdentityNotice(body); err != nil {
			return fmt.Errorf("decoding BillingIdentity: %w", err)
		}
		return nil

	case protocol.BillingOpUserPacket:
		return nil

	default:
		slog.Debug("unhandled billing downlink opcode", "op", op)
		return nil
	}
}

// Logoff sends ServerLogoff for a player known to the biller,
// including the score block only when one was saved (spec.md §4.7
// "Logoff").
func (c *Client) Logoff(playerID int, score *protocol.PlayerScoreBlock) error {
	c.mu.Lock()
	userID, known := c.knownToBiller[playerID]
	conn := c.conn
	delete(c.knownToBiller, playerID)
	c.mu.Unlock()

	if !known || conn == nil {
		return nil
	}
	req := protocol.ServerLogoffRequest{UserID: userID}
	if score != nil {
		req.HasScore = true
		req.Score = *score
	}
	return conn.Send(protocol.EncodeServerLogoffRequest(req))
}

// ResetScores honors a ScoreReset demand from the biller by resetting
// every configured arena group's interval scores.
func (c *Client) ResetScores(ctx context.Context, arenaGroups []string) error {
	for _, g := range arenaGroups {
		if err := c.scores.ResetArenaGroup(ctx, g); err != nil {
			return fmt.Errorf("resetting arena group %q: %w", g, err)
		}
	}
	return nil
}

// ForwardCommand relays a command the local server did not handle
// (spec.md §4.7 "Commands").
func (c *Client) ForwardCommand(playerID int, text string) error {
	c.mu.Lock()
	userID, known := c.knownToBiller[playerID]
	conn := c.conn
	c.mu.Unlock()
	if !known || conn == nil {
		return fmt.Errorf("player %d is not known to the biller", playerID)
	}
	return conn.Send(protocol.EncodeUserCommandRequest(protocol.UserCommandRequest{UserID: userID, Text: text}))
}

// QueueBanner buffers an outbound banner set for draining up to
// MaxConcurrentBannerUpload concurrent sends (spec.md §4.7 "Banner
// upload").
func (c *Client) QueueBanner(playerID int, banner []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bannerQueue[playerID] = append(c.bannerQueue[playerID], banner)
}

// DrainBanners sends queued banners up to the concurrency cap.
func (c *Client) DrainBanners() error {
	c.mu.Lock()
	if c.bannerInFlight >= c.cfg.MaxConcurrentBannerUpload || c.conn == nil {
		c.mu.Unlock()
		return nil
	}
	var playerID int
	var banner []byte
	for pid, queue := range c.bannerQueue {
		if len(queue) > 0 {
			playerID, banner = pid, queue[0]
			c.bannerQueue[pid] = queue[1:]
			break
		}
	}
	if banner == nil {
		c.mu.Unlock()
		return nil
	}
	userID := c.knownToBiller[playerID]
	conn := c.conn
	c.bannerInFlight++
	c.mu.Unlock()

	w := protocol.NewWriter(5 + len(banner))
	w.U8(protocol.BillingOpUserBanner)
	w.U32(userID)
	w.Raw(banner)
	err := conn.Send(w.Bytes())

	c.mu.Lock()
	c.bannerInFlight--
	c.mu.Unlock()
	return err
}

// RelayChat forwards an outbound chat event of the biller-visible
// kinds (public channel or private-to-unknown-player) upstream.
func (c *Client) RelayChat(op byte, n protocol.ChatRelayNotice) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("billing link is not connected")
	}
	return conn.Send(protocol.EncodeChatRelayNotice(op, n))
}

// Disable transitions to Disabled with no auto-retry, from an admin
// `?userdbadm drop` command or a fatal configuration error.
func (c *Client) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.pendingAuths = make(map[int]*pendingAuth)
	c.pendingOrder = nil
	c.state = StateDisabled
}

// Enable clears Disabled back to NoSocket, allowing reconnection
// attempts to resume (admin `?userdbadm connect`).
func (c *Client) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisabled {
		c.state = StateNoSocket
	}
}

// KeepaliveDue reports whether a Ping is due (spec.md §4.7
// "Keepalive: Ping packet every 60s while LoggedIn").
func (c *Client) KeepaliveDue(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoggedIn {
		return false
	}
	return now.Sub(c.lastKeepalive) >= time.Duration(constants.BillingKeepaliveIntervalSeconds)*time.Second
}

// SendKeepalive sends Ping and resets the keepalive clock.
func (c *Client) SendKeepalive(now time.Time) error {
	c.mu.Lock()
	conn := c.conn
	c.lastKeepalive = now
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("billing link is not connected")
	}
	return conn.Send(protocol.EncodeSimpleBillingOp(protocol.BillingOpPing))
}

// Shutdown implements graceful shutdown: send ServerDisconnect as a
// reliable packet and wait for the disconnected callback, polling
// with a short timeout so it never blocks the main loop's shutdown
// sequence indefinitely (spec.md §5 "PreUnload").
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.state = StateDisabled
		c.mu.Unlock()
		return nil
	}
	wait := make(chan struct{})
	c.disconnectWaiters = append(c.disconnectWaiters, wait)
	c.mu.Unlock()

	if err := conn.Send(protocol.EncodeSimpleBillingOp(protocol.BillingOpServerDisconnect)); err != nil {
		slog.Warn("failed to send ServerDisconnect", "error", err)
	}

	select {
	case <-wait:
	case <-ctx.Done():
		slog.Warn("billing client shutdown timed out waiting for disconnect ack")
	}

	c.mu.Lock()
	c.state = StateDisabled
	c.mu.Unlock()
	return nil
}
