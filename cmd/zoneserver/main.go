// Command zoneserver runs one zone process: a single arena's Team,
// Ball, Brick, Security, Asset, File-transfer, Billing, and
// Config-Authorization subsystems under a shared main loop. Grounded
// on the teacher's cmd/gameserver/main.go wiring: load config first to
// set the log level, connect the database and run migrations, then
// supervise every long-running subsystem from one errgroup so a
// signal (or any subsystem's fatal error) tears the whole process
// down together.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opensubspace/zonecore/internal/arena"
	"github.com/opensubspace/zonecore/internal/asset"
	"github.com/opensubspace/zonecore/internal/ball"
	"github.com/opensubspace/zonecore/internal/billing"
	"github.com/opensubspace/zonecore/internal/brick"
	"github.com/opensubspace/zonecore/internal/config"
	"github.com/opensubspace/zonecore/internal/configauth"
	"github.com/opensubspace/zonecore/internal/db"
	"github.com/opensubspace/zonecore/internal/filetransfer"
	"github.com/opensubspace/zonecore/internal/messages"
	"github.com/opensubspace/zonecore/internal/security"
	"github.com/opensubspace/zonecore/internal/team"
)

const configPath = "config/zoneserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := configPath
	if p := os.Getenv("ZONECORE_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.LoadServerConfig(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("zonecore starting", "arena", "public")

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	a := arena.New("public", cfg)

	teamMgr := team.NewManager(cfg.Team)

	ballEngine := ball.NewEngine(cfg.Soccer, nil, func(ballID, scoringFreq int) {
		slog.Info("goal scored", "ball_id", ballID, "freq", scoringFreq)
	})

	brickEngine := brick.NewEngine(cfg.Brick, nil)

	scrty, err := security.LoadScrtyFile(cfg.Security.ScrtyFile)
	if err != nil {
		slog.Warn("loading scrty file, continuing with synthesized keys", "error", err)
	}
	secCycle := security.NewCycle(scrty, nil, nil, nil)

	provider := filesystemMapProvider{dir: cfg.Files.AssetDir}
	catalog, warnings, err := asset.BuildCatalog(provider, a.Name)
	if err != nil {
		return fmt.Errorf("building asset catalog: %w", err)
	}
	for _, w := range warnings {
		slog.Warn("asset catalog warning", "detail", w)
	}

	newsWatcher := asset.NewNewsWatcher(cfg.Files.NewsFile)
	if err := newsWatcher.Reload(); err != nil {
		slog.Warn("loading news file", "error", err)
	}

	uploadMgr := filetransfer.NewUploadManager(cfg.Files.UploadTmpDir)
	slog.Info("upload manager ready", "tmp_dir", cfg.Files.UploadTmpDir)

	configAuth := configauth.NewAdvisor(cfg.ConfigAuth.GlobalFile, cfg.ConfigAuth.ArenaFile)
	if err := configAuth.ReloadAll(); err != nil {
		slog.Warn("loading config-auth files", "error", err)
	}

	idleTracker := messages.NewTracker(cfg.IdleThreshold())
	slog.Info("idle tracker ready", "threshold", cfg.IdleThreshold())

	scores := billing.DBScoreStore{DB: database}
	billingClient := billing.NewClient(cfg.Billing, billing.TCPDialer{}, nil, scores, nil, billingKickSink{})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runMainLoop(gctx, a, teamMgr, ballEngine, brickEngine, secCycle, catalog)
	})

	g.Go(func() error {
		return runBillingUplink(gctx, billingClient)
	})

	g.Go(func() error {
		return runBillingReceiveLoop(gctx, billingClient)
	})

	g.Go(func() error {
		return runWorkerPool(gctx, newsWatcher, configAuth)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runMainLoop is the sole mutator of per-arena game state: it ticks
// the ball broadcast timer, expires bricks, and switches security
// checksums on their configured intervals (spec.md §5 "Main loop
// thread").
// teamMgr and catalog are driven by player-facing events (freq
// change, arena entry) that arrive on the reliable-transport thread;
// that thread is an out-of-scope collaborator here, so the main loop
// only carries them through to where its own handlers would live.
func runMainLoop(ctx context.Context, a *arena.Arena, teamMgr *team.Manager, ballEngine *ball.Engine, brickEngine *brick.Engine, secCycle *security.Cycle, catalog *asset.Catalog) error {
	_ = teamMgr
	_ = catalog
	ballTicker := time.NewTicker(250 * time.Millisecond)
	defer ballTicker.Stop()

	switchTicker := time.NewTicker(time.Duration(a.Config.Security.SwitchIntervalSeconds) * time.Second)
	defer switchTicker.Stop()

	var tick uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ballTicker.C:
			a.Lock()
			ballEngine.Tick(tick)
			brickEngine.ExpireBricks(tick)
			a.Unlock()
			tick++
		case <-switchTicker.C:
			a.Lock()
			secCycle.Switch(tick)
			a.Unlock()
		}
	}
}

// runBillingUplink drives the billing client's connect/retry loop and
// keepalive cadence independently of the main loop, per spec.md §5's
// "Upload worker"-style dedicated-goroutine model.
func runBillingUplink(ctx context.Context, c *billing.Client) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return c.Shutdown(shutdownCtx)
		case now := <-ticker.C:
			c.Tick(now)
			switch c.State() {
			case billing.StateNoSocket:
				if err := c.Connect(ctx); err != nil {
					slog.Debug("billing connect failed", "error", err)
				}
			case billing.StateWaitLogin:
				c.MarkLoggedIn()
			case billing.StateLoggedIn:
				if c.KeepaliveDue(now) {
					if err := c.SendKeepalive(now); err != nil {
						slog.Warn("billing keepalive failed", "error", err)
						c.HandleDisconnect(now)
					}
				}
				if err := c.DrainBanners(); err != nil {
					slog.Warn("banner upload failed", "error", err)
				}
			}
		}
	}
}

// runBillingReceiveLoop drives every downlink packet off the biller's
// LinkConn into HandleInbound, mirroring the teacher's
// login/server.go handleConnection per-connection read loop: block on
// Recv, dispatch, repeat, and treat a read failure as a disconnect
// rather than a fatal error.
func runBillingReceiveLoop(ctx context.Context, c *billing.Client) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn := c.Conn()
		if conn == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		raw, err := conn.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("billing receive failed", "error", err)
			c.HandleDisconnect(time.Now())
			continue
		}

		if err := c.HandleInbound(ctx, raw); err != nil {
			slog.Warn("billing inbound dispatch failed", "error", err)
		}
	}
}

// billingKickSink logs a biller-demanded kick. Actually disconnecting
// the player is the reliable-transport layer's job (see runMainLoop's
// teamMgr/catalog note); that layer isn't part of this process yet.
type billingKickSink struct{}

func (billingKickSink) Kick(playerID int, reason string) {
	slog.Warn("biller demanded kick", "player_id", playerID, "reason", reason)
}

// runWorkerPool reloads file-backed state off the main loop thread:
// news on a slow poll, config-auth files likewise (spec.md §5 "Worker
// pool").
func runWorkerPool(ctx context.Context, news *asset.NewsWatcher, configAuth *configauth.Advisor) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := news.Reload(); err != nil {
				slog.Warn("news reload failed", "error", err)
			}
			if err := configAuth.ReloadAll(); err != nil {
				slog.Warn("config-auth reload failed", "error", err)
			}
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
