package topology

import (
	"context"

	"github.com/talkincode/topolive/internal/domain"
	"gorm.io/gorm"
)

// Inventory reads the current device and link collections.
// The returned order is the order nodes and edges appear in a snapshot.
type Inventory interface {
	// ListDevices returns every device ordered by name
	ListDevices(ctx context.Context) ([]domain.NetDevice, error)

	// ListLinks returns every link ordered by its endpoints
	ListLinks(ctx context.Context) ([]domain.NetLink, error)
}

// GormInventory is the GORM implementation of Inventory
type GormInventory struct {
	db *gorm.DB
}

// NewGormInventory creates a new GORM-based inventory
func NewGormInventory(db *gorm.DB) *GormInventory {
	return &GormInventory{db: db}
}

func (r *GormInventory) ListDevices(ctx context.Context) ([]domain.NetDevice, error) {
	var devices []domain.NetDevice
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&devices).Error
	return devices, err
}

func (r *GormInventory) ListLinks(ctx context.Context) ([]domain.NetLink, error) {
	var links []domain.NetLink
	err := r.db.WithContext(ctx).
		Order("source_device_id ASC").
		Order("target_device_id ASC").
		Order("id ASC").
		Find(&links).Error
	return links, err
}
