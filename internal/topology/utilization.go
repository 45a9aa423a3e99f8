package topology

import (
	"github.com/talkincode/topolive/internal/domain"
	"github.com/talkincode/topolive/pkg/common"
)

// Utilization returns the share of a full-duplex link in use, as a
// percentage rounded to one decimal. A link without declared capacity
// reports 0. The value is not clamped, so oversubscription shows above 100.
func Utilization(sample domain.BandwidthSample, capacityMbps int) float64 {
	if capacityMbps <= 0 {
		return 0
	}
	total := sample.Inbound + sample.Outbound
	pct := total / (float64(capacityMbps) * 2) * 100
	return common.RoundFloat(pct, 1)
}
