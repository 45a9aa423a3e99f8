package topology

import (
	"context"
	"fmt"

	"github.com/talkincode/topolive/internal/domain"
)

// SnapshotSource produces a complete, freshly assembled topology
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*domain.TopologySnapshot, error)
}

// Service reads the inventory and hands it to the assembler
type Service struct {
	inventory Inventory
	assembler *Assembler
}

// NewService creates a snapshot service
func NewService(inventory Inventory, assembler *Assembler) *Service {
	return &Service{inventory: inventory, assembler: assembler}
}

// Snapshot reads whatever inventory is current and assembles it.
// Only inventory read failures are returned; metrics failures are
// absorbed into zero samples.
func (s *Service) Snapshot(ctx context.Context) (*domain.TopologySnapshot, error) {
	devices, err := s.inventory.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	links, err := s.inventory.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return s.assembler.Assemble(ctx, devices, links), nil
}
