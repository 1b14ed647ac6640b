package host

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hangarcore/internal/reindex"
	"hangarcore/pkg/branch"
	"hangarcore/pkg/config"
	"hangarcore/pkg/device"
	"hangarcore/pkg/discovery"
	"hangarcore/pkg/indexer"
	"hangarcore/pkg/invocation"
	"hangarcore/pkg/launcher"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
	"hangarcore/pkg/router"
	"hangarcore/pkg/security"
	"hangarcore/pkg/session"
	"hangarcore/pkg/state"
	"hangarcore/pkg/store"
)

// Services bundles everything a running console (or spawned module
// process) needs: the store adapter, branch identity, the screen
// indexer, module discovery, the invocation bus, the session
// broadcaster, the task router and the module launcher.
type Services struct {
	Config   *config.Config
	Adapter  *store.Adapter
	Branch   branch.Identity
	Indexer  *indexer.Indexer
	Disc     *discovery.Discovery
	Bus      *invocation.Bus
	Keeper   *security.Keeper
	DeviceID string
	Session  *session.Broadcaster
	Launcher *launcher.Launcher
	Router   *router.Router

	stopReindex context.CancelFunc
}

// New assembles the service graph from an effective config. Nothing
// network-facing is started yet; call Start for that.
func New(eff config.EffectiveConfigResult) (*Services, error) {
	_ = godotenv.Load(".env")
	cfg := eff.Config

	dataDir := cfg.App.DataDir
	if err := state.EnsureStateDirs(dataDir); err != nil {
		return nil, fmt.Errorf("state dirs: %w", err)
	}

	backend, err := openBackend(cfg, eff.DBPath)
	if err != nil {
		return nil, err
	}
	adapter := store.NewAdapter(backend)

	ident := branch.Identity{WorkTree: cfg.Indexer.SourceRoot}

	keeper, err := security.LoadOrCreateKey(state.KeysPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	deviceID := device.ID(dataDir)

	idx := newIndexer(adapter, ident, cfg)

	agg := &discovery.Aggregator{
		Store:  adapter,
		Branch: ident,
		Mode:   config.ParseBranchlessMode(cfg.Discovery.BranchlessMode),
	}
	disc := &discovery.Discovery{
		Agg:        agg,
		Branch:     ident,
		DedupeByID: cfg.Discovery.Dedupe == "id",
	}

	bus := &invocation.Bus{Store: adapter}

	bcast := session.NewBroadcaster(keeper, deviceID, cfg.SSO.SessionTopic)

	launch := &launcher.Launcher{
		ModulesDir: cfg.Launcher.ModulesDir,
		Env: map[string]string{
			"HC_DAEMON_URL": cfg.Storage.DaemonURL,
			"HC_DATA_DIR":   dataDir,
			"HC_USER_ID":    cfg.App.UserID,
		},
	}

	rtr := &router.Router{
		Discovery:    disc,
		Bus:          bus,
		Launcher:     launch,
		ModuleMap:    cfg.Router.ModuleMap,
		SelfModuleID: models.SelfModuleID(ident.CurrentToken()),
		TTL:          cfg.Invocation.TTL.Duration(),
	}

	return &Services{
		Config:   cfg,
		Adapter:  adapter,
		Branch:   ident,
		Indexer:  idx,
		Disc:     disc,
		Bus:      bus,
		Keeper:   keeper,
		DeviceID: deviceID,
		Session:  bcast,
		Launcher: launch,
		Router:   rtr,
	}, nil
}

// Start brings up the runtime pieces: ensures the screen catalog is
// current, starts the reindex scheduler and connects the session bus.
// Bus failures are logged, never fatal.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Indexer.EnsureIndexed(ctx); err != nil {
		return fmt.Errorf("screen index: %w", err)
	}

	cancel, err := reindex.Start(ctx, s.Indexer, s.Config.Indexer.ReindexCron)
	if err != nil {
		return err
	}
	s.stopReindex = cancel

	if err := s.Session.Connect(ctx, session.BrokerConfig{
		Broker:   s.Config.MQTT.Broker,
		Port:     s.Config.MQTT.Port,
		Enabled:  s.Config.MQTT.Enabled,
		Username: s.Config.MQTT.Username,
		Password: s.Config.MQTT.Password,
	}); err != nil {
		logger.Warn("session_bus_unavailable", zap.Error(err))
	}
	return nil
}

// ResumeSession waits briefly for the retained session document and
// returns this device's token when one is present.
func (s *Services) ResumeSession(ctx context.Context) (string, bool) {
	return s.Session.AwaitStartup(ctx)
}

// ConsumePendingInvocation runs the single-use invocation handshake for
// a spawned module process.
func (s *Services) ConsumePendingInvocation(ctx context.Context, moduleName string, port invocation.ConsumerPort) *models.Invocation {
	c := &invocation.Consumer{Bus: s.Bus, ModuleName: moduleName, Port: port}
	return c.Start(ctx, s.Config.App.UserID)
}

// Close releases runtime resources. The retained session document is
// left untouched so other devices keep their sessions.
func (s *Services) Close() {
	if s.stopReindex != nil {
		s.stopReindex()
	}
	s.Session.Close()
	if err := s.Adapter.Disconnect(); err != nil {
		logger.Warn("store_disconnect_failed", zap.Error(err))
	}
}

func openBackend(cfg *config.Config, dbPath string) (store.Backend, error) {
	if cfg.Storage.DaemonURL != "" {
		key := ""
		if len(cfg.Security.APIKeys.Backend) > 0 {
			key = cfg.Security.APIKeys.Backend[0]
		}
		return store.NewRemote(cfg.Storage.DaemonURL, key), nil
	}
	path := dbPath
	if path == "" {
		path = state.StorePath(cfg.App.DataDir)
	}
	p, err := store.OpenPebble(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	return p, nil
}
