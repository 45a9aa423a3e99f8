package clients

import (
	"context"

	"github.com/talkincode/topolive/internal/domain"
)

// MetricsClient reads per-interface bandwidth from a metrics backend.
// Implementations must never fail: an unreachable or confused backend
// yields a zero sample so topology assembly always completes.
type MetricsClient interface {
	// FetchBandwidth returns inbound/outbound Mbps for one interface of one instance
	FetchBandwidth(ctx context.Context, instance, iface string) domain.BandwidthSample
}
