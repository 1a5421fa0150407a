package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DiscountMetrics counts cart resolutions by the tier that priced them.
type DiscountMetrics struct {
	resolutions *prometheus.CounterVec
}

func NewDiscountMetrics(reg prometheus.Registerer) *DiscountMetrics {
	if reg == nil {
		return &DiscountMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discount_resolutions_total",
		Help:      "Cart discount resolutions by winning tier.",
	}, []string{"tier"})
	reg.MustRegister(resolutions)
	return &DiscountMetrics{resolutions: resolutions}
}

// IncResolution records one resolution for tier.
func (d *DiscountMetrics) IncResolution(tier string) {
	if d == nil || d.resolutions == nil {
		return
	}
	d.resolutions.WithLabelValues(normalizeLabel(tier)).Inc()
}
