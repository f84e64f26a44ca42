package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/rtlink/internal/api"
	"github.com/matheus3301/rtlink/internal/backoff"
	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/config"
	"github.com/matheus3301/rtlink/internal/identity"
	"github.com/matheus3301/rtlink/internal/journal"
	"github.com/matheus3301/rtlink/internal/lock"
	"github.com/matheus3301/rtlink/internal/logging"
	"github.com/matheus3301/rtlink/internal/metrics"
	"github.com/matheus3301/rtlink/internal/profile"
	"github.com/matheus3301/rtlink/internal/realtime"
	"github.com/matheus3301/rtlink/internal/retention"
	"github.com/matheus3301/rtlink/internal/store"
	"github.com/matheus3301/rtlink/internal/transport"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string          // optional override for testing; empty = use default
	Profile     *config.Profile // optional; nil = read profile.toml
	LogLevel    zapcore.Level
	Console     bool // mirror logs to stderr
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideProfile,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideIdentity,
			provideTransport,
			provideManager,
			provideJournal,
			provideMetrics,
			providePruner,
			provideConnectionService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideProfile(p Params) (*config.Profile, error) {
	cfg := p.Profile
	if cfg == nil {
		var err error
		if cfg, err = profile.Load(p.ProfileName); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:    profile.LogPath(p.ProfileName),
		Profile: p.ProfileName,
		Level:   p.LogLevel,
		Console: p.Console,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("profile", p.ProfileName), zap.Int("pid", l.Holder().PID))
	return l, nil
}

// provideStore depends on the lock so two daemons never migrate the same file.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.JournalPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("journal migrated", zap.Uint("from", result.From), zap.Uint("to", result.Version))
	}
	logger.Info("journal opened", zap.String("path", db.Path()), zap.Uint("schema", result.Version))
	return db, nil
}

func provideIdentity(cfg *config.Profile) *identity.Store {
	return identity.NewStore(cfg.UserID)
}

func provideTransport(cfg *config.Profile, ident *identity.Store, logger *zap.Logger) transport.Transport {
	return transport.NewWebSocket(transport.WebSocketConfig{
		URL:    cfg.ServerURL,
		UserID: cfg.UserID,
		Principal: func() string {
			id, _ := ident.Current()
			return id
		},
		Token:        cfg.Token,
		PingInterval: cfg.PingInterval.Duration,
	}, logger)
}

func provideManager(cfg *config.Profile, tr transport.Transport, ident *identity.Store, b *bus.Bus, logger *zap.Logger) *realtime.Manager {
	return realtime.NewManager(managerConfig(cfg), tr, ident, b, nil, logger)
}

func managerConfig(cfg *config.Profile) realtime.Config {
	return realtime.Config{
		Policy: backoff.Policy{
			BaseDelay:   cfg.BaseDelay.Duration,
			MaxDelay:    cfg.MaxDelay.Duration,
			MaxAttempts: cfg.MaxReconnectAttempts,
		},
		SettleDelay:     cfg.SettleDelay.Duration,
		TypingTimeout:   cfg.TypingTimeout.Duration,
		ReconnectOnDrop: cfg.ReconnectOnDrop,
		StableAfter:     cfg.StableAfter.Duration,
	}
}

func provideJournal(db *store.DB, b *bus.Bus, logger *zap.Logger) *journal.Engine {
	return journal.NewEngine(db, b, logger)
}

func provideMetrics(b *bus.Bus, m *realtime.Manager, logger *zap.Logger) *metrics.Metrics {
	return metrics.New(b, func() int { return len(m.ConnectionStats().OnlinePeers) }, logger)
}

func providePruner(cfg *config.Profile, db *store.DB, b *bus.Bus, logger *zap.Logger) *retention.Pruner {
	return retention.NewPruner(db, cfg.JournalRetention.Duration, retention.DefaultInterval, nil, b, logger)
}

func provideConnectionService(p Params, m *realtime.Manager, ident *identity.Store, db *store.DB, logger *zap.Logger) *api.ConnectionService {
	return api.NewConnectionService(p.ProfileName, m, ident, db, logger.Named("api"))
}

type lifecycleParams struct {
	fx.In

	Profile  *config.Profile
	Server   *Server
	Lock     *lock.Lock
	DB       *store.DB
	Identity *identity.Store
	Manager  *realtime.Manager
	Journal  *journal.Engine
	Metrics  *metrics.Metrics
	Pruner   *retention.Pruner
	Bus      *bus.Bus
	Logger   *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, in lifecycleParams) {
	logger := in.Logger
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			in.Journal.Start(context.Background())
			in.Metrics.Start(context.Background())
			if in.Profile.MetricsAddr != "" {
				if err := in.Metrics.Serve(in.Profile.MetricsAddr); err != nil {
					return err
				}
			}
			in.Pruner.Start(context.Background())

			in.Manager.SetEventHandlers(BridgeEvents(in.Bus))
			restoreMemberships(in.DB, in.Manager, logger)

			go func() {
				if err := in.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if _, ok := in.Identity.Current(); !ok {
				logger.Info("no principal configured, waiting for login")
			}
			in.Manager.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			in.Manager.Close()
			in.Server.Stop(ctx)
			in.Pruner.Stop()
			if err := in.Metrics.Stop(ctx); err != nil {
				logger.Warn("error stopping metrics", zap.Error(err))
			}
			in.Journal.Stop()
			in.Identity.Close()
			if err := in.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := in.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// restoreMemberships joins every conversation persisted by a previous run.
// The manager sends the joins once the connection is up.
func restoreMemberships(db *store.DB, m *realtime.Manager, logger *zap.Logger) {
	members, err := db.ListMemberships()
	if err != nil {
		logger.Warn("failed to load memberships", zap.Error(err))
		return
	}
	for _, mb := range members {
		m.JoinConversation(mb.ConversationID)
	}
	if len(members) > 0 {
		logger.Info("memberships restored", zap.Int("count", len(members)))
	}
}
