package domain

import "time"

// Network module related models

// Device classes accepted by the inventory
const (
	DeviceTypeFirewall   = "firewall"
	DeviceTypeSwitch     = "switch"
	DeviceTypeRouter     = "router"
	DeviceTypeHypervisor = "hypervisor"
	DeviceTypeServer     = "server"
	DeviceTypeISP        = "isp"
)

// DeviceTypes lists every valid device class in display order
var DeviceTypes = []string{
	DeviceTypeFirewall,
	DeviceTypeSwitch,
	DeviceTypeRouter,
	DeviceTypeHypervisor,
	DeviceTypeServer,
	DeviceTypeISP,
}

// NetDevice network device drawn as a topology node
type NetDevice struct {
	ID                 int64     `json:"id,string" form:"id"`                                        // Primary key ID
	Name               string    `gorm:"uniqueIndex;size:100" json:"name" form:"name"`                // Display name, unique
	DeviceType         string    `gorm:"size:20" json:"device_type" form:"device_type"`               // firewall/switch/router/hypervisor/server/isp
	IpAddr             string    `json:"ip_address" form:"ip_address"`                                // Management address
	PrometheusInstance string    `gorm:"size:100" json:"prometheus_instance" form:"prometheus_instance"` // Instance label in Prometheus, blank for dummy nodes
	IsMonitored        bool      `json:"is_monitored" form:"is_monitored"`                            // Whether the device exports metrics
	PositionX          int       `json:"position_x" form:"position_x"`                                // Canvas position, owned by the UI
	PositionY          int       `json:"position_y" form:"position_y"`
	Icon               string    `json:"icon" form:"icon"` // Base64 image or emoji, not interpreted
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName Specify table name
func (NetDevice) TableName() string {
	return "net_device"
}

// HasMetrics reports whether bandwidth can be queried for this device
func (d *NetDevice) HasMetrics() bool {
	return d != nil && d.IsMonitored && d.PrometheusInstance != ""
}

// NetLink link between two devices, direction is presentational only
type NetLink struct {
	ID                int64     `json:"id,string" form:"id"`
	SourceDeviceId    int64     `gorm:"uniqueIndex:idx_net_link_endpoints,priority:1" json:"source_device,string" form:"source_device"`
	SourceInterface   string    `gorm:"uniqueIndex:idx_net_link_endpoints,priority:2;size:50" json:"source_interface" form:"source_interface"` // e.g. ae0, ge-0/0/0
	TargetDeviceId    int64     `gorm:"uniqueIndex:idx_net_link_endpoints,priority:3" json:"target_device,string" form:"target_device"`
	TargetInterface   string    `gorm:"uniqueIndex:idx_net_link_endpoints,priority:4;size:50" json:"target_interface" form:"target_interface"`
	BandwidthCapacity int       `json:"bandwidth_capacity" form:"bandwidth_capacity"` // Capacity in Mbps, <= 0 disables utilization
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName Specify table name
func (NetLink) TableName() string {
	return "net_link"
}
