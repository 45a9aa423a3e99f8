package topology

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/talkincode/topolive/internal/domain"
	"github.com/talkincode/topolive/internal/topology/clients"
	"go.uber.org/zap"
)

var assemblyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "topolive",
	Name:      "assembly_duration_seconds",
	Help:      "Time spent assembling one topology snapshot.",
	Buckets:   prometheus.DefBuckets,
})

// Assembler joins the device/link inventory with live bandwidth samples
type Assembler struct {
	client clients.MetricsClient
	pool   *ants.Pool
}

// NewAssembler creates an assembler. pool bounds the number of links
// queried at once; when nil every link is queried inline.
func NewAssembler(client clients.MetricsClient, pool *ants.Pool) *Assembler {
	return &Assembler{client: client, pool: pool}
}

// endpoint is the (instance, interface) pair a link is measured at
type endpoint struct {
	instance string
	iface    string
}

// selectEndpoint prefers the source side and falls back to the target.
// A side whose device is missing from the inventory counts as unmonitored.
func selectEndpoint(link domain.NetLink, devices map[int64]*domain.NetDevice) (endpoint, bool) {
	if src := devices[link.SourceDeviceId]; src.HasMetrics() {
		return endpoint{instance: src.PrometheusInstance, iface: link.SourceInterface}, true
	}
	if dst := devices[link.TargetDeviceId]; dst.HasMetrics() {
		return endpoint{instance: dst.PrometheusInstance, iface: link.TargetInterface}, true
	}
	return endpoint{}, false
}

// Assemble builds a fresh snapshot. Nodes and edges keep the order of the
// given slices. The snapshot timestamp is the latest sample timestamp seen,
// nil when no link produced a sample.
func (a *Assembler) Assemble(ctx context.Context, devices []domain.NetDevice, links []domain.NetLink) *domain.TopologySnapshot {
	start := time.Now()
	defer func() { assemblyDuration.Observe(time.Since(start).Seconds()) }()

	byID := make(map[int64]*domain.NetDevice, len(devices))
	nodes := make([]domain.NodeView, 0, len(devices))
	for i := range devices {
		byID[devices[i].ID] = &devices[i]
		nodes = append(nodes, domain.NewNodeView(devices[i]))
	}

	samples := make([]domain.BandwidthSample, len(links))
	var wg sync.WaitGroup
	for i := range links {
		ep, ok := selectEndpoint(links[i], byID)
		if !ok {
			continue
		}
		idx := i
		job := func() {
			defer wg.Done()
			samples[idx] = a.client.FetchBandwidth(ctx, ep.instance, ep.iface)
		}
		wg.Add(1)
		if a.pool == nil {
			job()
			continue
		}
		if err := a.pool.Submit(job); err != nil {
			zap.L().Warn("metrics pool rejected job, querying inline",
				zap.String("namespace", "topology"),
				zap.Int64("link_id", links[i].ID),
				zap.Error(err),
			)
			job()
		}
	}
	wg.Wait()

	var latest *time.Time
	edges := make([]domain.EdgeView, 0, len(links))
	for i, link := range links {
		sample := samples[i]
		if sample.Timestamp != nil && (latest == nil || sample.Timestamp.After(*latest)) {
			ts := *sample.Timestamp
			latest = &ts
		}
		edges = append(edges, domain.EdgeView{
			ID:              link.ID,
			Source:          link.SourceDeviceId,
			Target:          link.TargetDeviceId,
			SourceInterface: link.SourceInterface,
			TargetInterface: link.TargetInterface,
			Bandwidth: domain.Bandwidth{
				Inbound:     sample.Inbound,
				Outbound:    sample.Outbound,
				Capacity:    link.BandwidthCapacity,
				Utilization: Utilization(sample, link.BandwidthCapacity),
			},
		})
	}

	return &domain.TopologySnapshot{
		Nodes:     nodes,
		Edges:     edges,
		Timestamp: latest,
	}
}
