package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Coupon validation outcome labels.
const (
	CouponOutcomeValid       = "valid"
	CouponOutcomeInvalid     = "invalid"
	CouponOutcomeNotFound    = "not_found"
	CouponOutcomeLimited     = "usage_limited"
	CouponOutcomeInfraError  = "infra_error"
	CouponOutcomeRulesFailed = "rules_failed"
)

// CouponMetrics tracks coupon validation traffic by outcome.
type CouponMetrics struct {
	validations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	discount    prometheus.Histogram
}

// NewCouponMetrics registers the coupon metrics on the provided registerer.
func NewCouponMetrics(reg prometheus.Registerer) *CouponMetrics {
	if reg == nil {
		return &CouponMetrics{}
	}
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_validations_total",
		Help: "Coupon validation calls by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coupon_validation_duration_seconds",
		Help:    "Duration of coupon validation calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	discount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coupon_discount_rupees",
		Help:    "Granted discount amounts in rupees.",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	reg.MustRegister(validations, duration, discount)
	return &CouponMetrics{
		validations: validations,
		duration:    duration,
		discount:    discount,
	}
}

// ObserveValidation records one validation call.
func (c *CouponMetrics) ObserveValidation(outcome string, duration time.Duration) {
	if c == nil || c.validations == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.validations.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveDiscount records the rupee value of a granted discount.
func (c *CouponMetrics) ObserveDiscount(amount float64) {
	if c == nil || c.discount == nil {
		return
	}
	if amount < 0 {
		return
	}
	c.discount.Observe(amount)
}
