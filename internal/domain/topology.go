package domain

import "time"

// BandwidthSample is one reading of a link's traffic in Mbps.
// A nil Timestamp means no data was available for the link.
type BandwidthSample struct {
	Inbound   float64
	Outbound  float64
	Timestamp *time.Time
}

// Position is the canvas location of a node.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NodeView is a device as rendered by the topology client.
type NodeView struct {
	ID                 int64    `json:"id,string"`
	Label              string   `json:"label"`
	Type               string   `json:"type"`
	IP                 string   `json:"ip"`
	IsMonitored        bool     `json:"is_monitored"`
	PrometheusInstance string   `json:"prometheus_instance"`
	Icon               string   `json:"icon"`
	Position           Position `json:"position"`
}

// Bandwidth is the traffic block attached to every edge.
type Bandwidth struct {
	Inbound     float64 `json:"inbound"`
	Outbound    float64 `json:"outbound"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// EdgeView is a link as rendered by the topology client.
type EdgeView struct {
	ID              int64     `json:"id,string"`
	Source          int64     `json:"source,string"`
	Target          int64     `json:"target,string"`
	SourceInterface string    `json:"source_interface"`
	TargetInterface string    `json:"target_interface"`
	Bandwidth       Bandwidth `json:"bandwidth"`
}

// TopologySnapshot is one fully assembled view. It is never patched:
// every assembly pass produces a new value.
type TopologySnapshot struct {
	Nodes     []NodeView `json:"nodes"`
	Edges     []EdgeView `json:"edges"`
	Timestamp *time.Time `json:"timestamp"`
}

// NewNodeView projects a device into its node view
func NewNodeView(d NetDevice) NodeView {
	return NodeView{
		ID:                 d.ID,
		Label:              d.Name,
		Type:               d.DeviceType,
		IP:                 d.IpAddr,
		IsMonitored:        d.IsMonitored,
		PrometheusInstance: d.PrometheusInstance,
		Icon:               d.Icon,
		Position:           Position{X: d.PositionX, Y: d.PositionY},
	}
}
