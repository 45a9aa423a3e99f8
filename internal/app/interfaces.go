package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/topology"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// TopologyProvider provides the snapshot source and the live subscriber hub
type TopologyProvider interface {
	Topology() topology.SnapshotSource
	Hub() *topology.Hub
}

// InventoryNotifier announces committed inventory mutations
type InventoryNotifier interface {
	// PublishInventoryChanged must only be called after a successful commit
	PublishInventoryChanged()
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	TopologyProvider
	InventoryNotifier

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
