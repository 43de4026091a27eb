package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/encounter/internal/ability"
	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
	"github.com/l1jgo/encounter/internal/config"
	"github.com/l1jgo/encounter/internal/core/event"
	"github.com/l1jgo/encounter/internal/core/schedule"
	coresys "github.com/l1jgo/encounter/internal/core/system"
	"github.com/l1jgo/encounter/internal/data"
	"github.com/l1jgo/encounter/internal/effect"
	"github.com/l1jgo/encounter/internal/handler"
	"github.com/l1jgo/encounter/internal/hazard"
	"github.com/l1jgo/encounter/internal/net"
	"github.com/l1jgo/encounter/internal/net/packet"
	"github.com/l1jgo/encounter/internal/persist"
	"github.com/l1jgo/encounter/internal/scripting"
	"github.com/l1jgo/encounter/internal/system"
	"github.com/l1jgo/encounter/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// storage is where snapshots and the activation log go: PostgreSQL when
// persistence is enabled, memory otherwise.
type storage struct {
	snaps       attr.SnapshotStore
	activations system.ActivationWriter
	close       func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	if !cfg.Persist.Enabled {
		log.Warn("persistence disabled, attributes live in memory only")
		return &storage{snaps: attr.NewMemorySnapshots(), activations: &persist.ActivationLog{}, close: func() {}}, nil
	}
	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")
	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	return &storage{
		snaps:       persist.NewAttributeRepo(db),
		activations: persist.NewActivationRepo(db),
		close:       db.Close,
	}, nil
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("ENCOUNTER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	fmt.Printf("\n  \033[1m%s\033[0m \033[90m(id: %d)\033[0m\n\n", cfg.Server.Name, cfg.Server.ID)

	// 3. Storage
	printSection("storage")
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store, err := openStorage(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	epoch, err := system.LoadCalendar(startCtx, store.snaps)
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	fmt.Println()

	// 4. Data
	printSection("data")
	table, err := data.LoadAbilityTable(cfg.Data.Abilities)
	if err != nil {
		return fmt.Errorf("load ability table: %w", err)
	}
	printStat("abilities", table.Count())
	printStat("boss templates", len(table.BossCodes()))
	for _, is := range table.Issues() {
		log.Warn("ability table", zap.String("issue", is.String()))
	}
	for _, code := range ability.UnknownKinds(table) {
		log.Warn("ability kind not implemented", zap.String("ability", code), zap.String("kind", table.Get(code).Kind))
	}

	spawns, err := data.LoadBossSpawnList(cfg.Data.Spawns)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}

	var maps *data.MapDataTable
	if cfg.Data.Maps != "" {
		maps, err = data.LoadMapData(cfg.Data.Maps, cfg.Data.MapTiles)
		if err != nil {
			return fmt.Errorf("load map data: %w", err)
		}
		printStat("arena maps", maps.Count())
		for _, id := range maps.Missing() {
			log.Warn("map has no tile file, every tile accepts ground hazards", zap.Int32("map", id))
		}
	}

	luaEngine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua formulas loaded")

	// 5. World and scheduler
	proc := clock.NewProcessClock()
	cal := clock.NewGameCalendar(epoch, cfg.Tick.CalendarHoursPerSecond)
	bus := event.NewBus()
	ws := world.NewState(bus)
	sched := schedule.NewDeferred(proc, log)
	effects := effect.NewManager(ws, proc, cal, effect.Options{
		StaleBound:     cfg.Scheduler.StaleBound,
		Floor:          cfg.Scheduler.EffectFloor,
		HoursPerSecond: cfg.Tick.CalendarHoursPerSecond,
	}, log)
	present := event.BusPresenter{Bus: bus}
	hazards := hazard.NewLifecycle(ws, proc, present, hazard.Options{
		Retry:       cfg.Scheduler.HazardRetry,
		DotInterval: cfg.Scheduler.GroundDotInterval,
	}, log)
	holder := data.NewTableHolder(table)
	if maps != nil {
		n := maps.EachBlocked(func(mapID, x, y int32) {
			ws.BlockTile(world.TileKey{MapID: mapID, X: x, Y: y})
		})
		printStat("blocked tiles", n)
	}

	tracer := ability.NewTracer(log, cfg.Debug.TraceSpawns)
	actx := &ability.Context{
		World:    ws,
		Clock:    proc,
		Sched:    sched,
		Tables:   holder,
		Effects:  effects,
		Hazards:  hazards,
		Present:  present,
		Bus:      bus,
		Formulas: luaEngine,
		Tracer:   tracer,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:      log,
	}
	abilities := system.NewAbilitySystem(ws, actx, log)
	ws.OnEntityGone(effects.HandleGone)
	ws.OnEntityGone(abilities.HandleGone)

	bossCount := system.SpawnBosses(startCtx, ws, table, spawns, store.snaps, effects, abilities, log)
	printStat("bosses spawned", bossCount)
	fmt.Println()

	// 6. Systems
	var updates <-chan *data.AbilityTable
	var watcher *data.Watcher
	if cfg.Data.HotReload {
		watcher, err = data.NewWatcher(cfg.Data.Abilities, log)
		if err != nil {
			return fmt.Errorf("ability table watcher: %w", err)
		}
		updates = watcher.Updates()
	}

	persistence := system.NewPersistenceSystem(ws, bus, store.snaps, store.activations, proc, cal, cfg.Persist.SaveInterval, log)
	sessions := system.NewPlayerSessionSystem(ws, effects, store.snaps, log)

	// 7. Observer feed
	var feedServer *net.Server
	feedSessions := net.NewSessionStore()
	if cfg.Network.Enabled {
		printSection("network")
		feedServer, err = net.NewServer(cfg.Network.BindAddress, net.Options{
			InQueueSize:         cfg.Network.InQueueSize,
			OutQueueSize:        cfg.Network.OutQueueSize,
			MaxPacketsPerSecond: cfg.Network.MaxPacketsPerSecond,
		}, log)
		if err != nil {
			return fmt.Errorf("feed listener: %w", err)
		}
		printOK(fmt.Sprintf("feed listening on %s", feedServer.Addr()))
		if cfg.Network.PasswordHash == "" {
			log.Warn("feed has no password, any client may watch")
		}
		handler.NewFeed(bus, feedSessions, ws)
		fmt.Println()
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewTableReloadSystem(updates, holder, abilities, bus, log))
	if feedServer != nil {
		registry := packet.NewRegistry(log)
		handler.RegisterAll(registry, &handler.Deps{
			Config:   cfg,
			Log:      log,
			World:    ws,
			Effects:  effects,
			Sessions: sessions,
			Tracer:   tracer,
		})
		runner.Register(system.NewNetworkSystem(feedServer, registry, feedSessions, sessions, cfg.Network.MaxPacketsPerTick, log))
	}
	runner.Register(sessions)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewDeferredSystem(sched))
	runner.Register(abilities)
	runner.Register(system.NewHazardSystem(hazards, proc, cfg.Scheduler.HazardScanInterval))
	runner.Register(system.NewEffectSweepSystem(effects, proc, cfg.Scheduler.SweepInterval))
	runner.Register(system.NewReplicationSystem(ws, bus))
	if feedServer != nil {
		runner.Register(system.NewOutputSystem(feedSessions, ws))
	}
	runner.Register(persistence)
	runner.Register(system.NewCleanupSystem(ws.ECS(), log))

	// 8. Run
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				return fmt.Errorf("ability table watcher: %w", err)
			}
			return nil
		})
	}

	if feedServer != nil {
		g.Go(func() error {
			if err := feedServer.Serve(gctx); err != nil {
				return fmt.Errorf("feed server: %w", err)
			}
			return nil
		})
	}

	printSection("ready")
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Tick.Rate))
	if watcher != nil {
		printReady(fmt.Sprintf("watching %s", cfg.Data.Abilities))
	}
	fmt.Println()

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Tick.Rate)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runner.Tick(cfg.Tick.Rate)
			case <-gctx.Done():
				return nil
			}
		}
	})

	err = g.Wait()
	log.Info("shutting down")

	// the game loop has returned, so the world is safe to read here
	saveCtx, cancelSave := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSave()
	if serr := persistence.SaveAll(saveCtx); serr != nil {
		err = errors.Join(err, fmt.Errorf("final save: %w", serr))
	}
	log.Info("server stopped")
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
