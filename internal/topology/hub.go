package topology

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/talkincode/topolive/config"
	"github.com/talkincode/topolive/internal/domain"
	"go.uber.org/zap"
)

// MessageTypeTopologyUpdate tags every snapshot pushed to subscribers
const MessageTypeTopologyUpdate = "topology_update"

// ErrSubscriberNotFound is returned for handles that are not registered
var ErrSubscriberNotFound = errors.New("subscriber not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	hubSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "topolive",
		Name:      "hub_subscribers",
		Help:      "Currently registered live topology subscribers.",
	})
	hubDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topolive",
		Name:      "hub_deliveries_total",
		Help:      "Snapshot deliveries to subscribers, by result.",
	}, []string{"result"})
)

// Message is the envelope written to subscribers
type Message struct {
	Type string                   `json:"type"`
	Data *domain.TopologySnapshot `json:"data"`
}

// Handle identifies one subscription
type Handle string

// Sink receives encoded messages for one subscriber, typically a
// websocket connection. Deliver must honour ctx cancellation.
type Sink interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Hub keeps the set of live subscribers and pushes freshly assembled
// snapshots to them. A nil *Hub is valid and does nothing.
type Hub struct {
	source      SnapshotSource
	sendTimeout time.Duration

	mu          sync.RWMutex
	subscribers map[Handle]Sink
}

// NewHub creates a hub that assembles snapshots from source
func NewHub(source SnapshotSource, sendTimeout time.Duration) *Hub {
	if sendTimeout <= 0 {
		sendTimeout = config.DefaultSendTimeout
	}
	return &Hub{
		source:      source,
		sendTimeout: sendTimeout,
		subscribers: make(map[Handle]Sink),
	}
}

// Len returns the number of registered subscribers
func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Subscribe registers sink and immediately sends it the current topology.
// If that first delivery fails the subscriber is dropped again; the handle
// is still returned together with the error.
func (h *Hub) Subscribe(ctx context.Context, sink Sink) (Handle, error) {
	handle := Handle(uuid.NewString())
	if h == nil {
		return handle, nil
	}

	h.mu.Lock()
	h.subscribers[handle] = sink
	hubSubscribers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()

	zap.L().Info("topology subscriber registered",
		zap.String("namespace", "topology"),
		zap.String("handle", string(handle)),
	)

	if err := h.sendSnapshot(ctx, handle, sink); err != nil {
		h.Unsubscribe(handle)
		return handle, err
	}
	return handle, nil
}

// Unsubscribe removes the subscriber; unknown handles are ignored
func (h *Hub) Unsubscribe(handle Handle) {
	if h == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subscribers[handle]
	delete(h.subscribers, handle)
	hubSubscribers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()

	if ok {
		zap.L().Info("topology subscriber removed",
			zap.String("namespace", "topology"),
			zap.String("handle", string(handle)),
		)
	}
}

// RequestRefresh assembles a snapshot and sends it to one subscriber only.
// A failed delivery drops the subscriber.
func (h *Hub) RequestRefresh(ctx context.Context, handle Handle) error {
	if h == nil {
		return ErrSubscriberNotFound
	}
	h.mu.RLock()
	sink, ok := h.subscribers[handle]
	h.mu.RUnlock()
	if !ok {
		return ErrSubscriberNotFound
	}

	if err := h.sendSnapshot(ctx, handle, sink); err != nil {
		h.Unsubscribe(handle)
		return err
	}
	return nil
}

// NotifyInventoryChanged assembles one snapshot and sends it to every
// current subscriber. Failed subscribers are removed and the rest still
// receive the update. Subscribers removed while the fan-out runs are
// skipped. With no subscribers nothing is assembled.
func (h *Hub) NotifyInventoryChanged(ctx context.Context) {
	if h.Len() == 0 {
		return
	}

	payload, err := h.encodeSnapshot(ctx)
	if err != nil {
		zap.L().Error("topology broadcast skipped",
			zap.String("namespace", "topology"),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	targets := make(map[Handle]Sink, len(h.subscribers))
	for handle, sink := range h.subscribers {
		targets[handle] = sink
	}
	h.mu.RUnlock()

	for handle, sink := range targets {
		if !h.registered(handle) {
			continue
		}
		if err := h.deliver(ctx, sink, payload); err != nil {
			zap.L().Warn("topology delivery failed, dropping subscriber",
				zap.String("namespace", "topology"),
				zap.String("handle", string(handle)),
				zap.Error(err),
			)
			h.Unsubscribe(handle)
		}
	}
}

func (h *Hub) registered(handle Handle) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subscribers[handle]
	return ok
}

func (h *Hub) sendSnapshot(ctx context.Context, handle Handle, sink Sink) error {
	payload, err := h.encodeSnapshot(ctx)
	if err != nil {
		return err
	}
	if err := h.deliver(ctx, sink, payload); err != nil {
		zap.L().Warn("topology delivery failed",
			zap.String("namespace", "topology"),
			zap.String("handle", string(handle)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (h *Hub) encodeSnapshot(ctx context.Context) ([]byte, error) {
	snapshot, err := h.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := EncodeMessage(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode topology message: %w", err)
	}
	return payload, nil
}

func (h *Hub) deliver(ctx context.Context, sink Sink, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	if err := sink.Deliver(ctx, payload); err != nil {
		hubDeliveries.WithLabelValues("failed").Inc()
		return err
	}
	hubDeliveries.WithLabelValues("ok").Inc()
	return nil
}

// EncodeMessage renders a snapshot as a topology_update message
func EncodeMessage(snapshot *domain.TopologySnapshot) ([]byte, error) {
	return json.Marshal(Message{Type: MessageTypeTopologyUpdate, Data: snapshot})
}
