package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/domain"
	"github.com/talkincode/topolive/internal/topology"
	"github.com/talkincode/topolive/internal/topology/clients"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// TopicInventoryChanged is published after every committed device or link mutation
const TopicInventoryChanged = "topology:inventory_changed"

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	pool      *ants.Pool
	service   *topology.Service
	hub       *topology.Hub
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ TopologyProvider  = (*Application)(nil)
	_ InventoryNotifier = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)

	a.gormDB = getDatabase(cfg.Database)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	if err := a.initTopology(); err != nil {
		zap.S().Fatalf("topology engine init failed: %v", err)
	}

	a.initJob()
}

func initLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// initTopology wires the metrics gateway, assembler, hub and event bus
func (a *Application) initTopology() error {
	cfg := a.appConfig
	pool, err := ants.NewPool(cfg.Prometheus.Workers, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("metrics worker panic: %v", p)
	}))
	if err != nil {
		return err
	}
	a.pool = pool

	gateway := clients.NewPrometheusClient(cfg.Prometheus)
	a.service = topology.NewService(
		topology.NewGormInventory(a.gormDB),
		topology.NewAssembler(gateway, a.pool),
	)
	a.hub = topology.NewHub(a.service, cfg.Broadcast.SendTimeout)

	a.bus = EventBus.New()
	if err := a.bus.SubscribeAsync(TopicInventoryChanged, a.onInventoryChanged, false); err != nil {
		return err
	}

	zap.L().Info("topology engine initialized",
		zap.String("namespace", "topology"),
		zap.String("prometheus", cfg.Prometheus.URL),
		zap.Int("workers", cfg.Prometheus.Workers),
	)
	return nil
}

func (a *Application) onInventoryChanged() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	a.hub.NotifyInventoryChanged(context.Background())
}

// PublishInventoryChanged schedules a broadcast of the current topology.
// It returns immediately; the fan-out runs on the event bus.
func (a *Application) PublishInventoryChanged() {
	if a.bus == nil {
		return
	}
	a.bus.Publish(TopicInventoryChanged)
}

// Topology returns the snapshot source used by the HTTP fetch path
func (a *Application) Topology() topology.SnapshotSource {
	return a.service
}

// Hub returns the live subscriber hub, nil before Init
func (a *Application) Hub() *topology.Hub {
	return a.hub
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.pool != nil {
		a.pool.Release()
	}
	_ = zap.L().Sync()
}
