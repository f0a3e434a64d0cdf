// Package telemetry exports flight state as Prometheus metrics and serves
// it, together with health probes, over HTTP.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/go-aerocontrol/pkg/event"
	"github.com/opd-ai/go-aerocontrol/pkg/flight"
)

const namespace = "flight"

// Recorder holds the flight metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	aoa            *prometheus.GaugeVec
	aoaCeiling     *prometheus.GaugeVec
	airspeed       *prometheus.GaugeVec
	altitude       *prometheus.GaugeVec
	throttle       *prometheus.GaugeVec
	efficiency     *prometheus.GaugeVec
	stallIntensity *prometheus.GaugeVec
	limiterActive  *prometheus.GaugeVec
	cooldown       *prometheus.GaugeVec
	ticks          *prometheus.GaugeVec
	limiterEvents  *prometheus.CounterVec
	stallEvents    *prometheus.CounterVec
}

// NewRecorder creates a recorder and registers its collectors.
func NewRecorder() *Recorder {
	labels := []string{"aircraft"}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	r := &Recorder{
		registry:       prometheus.NewRegistry(),
		aoa:            gauge("aoa_degrees", "Current angle of attack in degrees"),
		aoaCeiling:     gauge("aoa_ceiling_degrees", "Usable angle of attack for the current limiter mode"),
		airspeed:       gauge("airspeed", "Current airspeed in units per second"),
		altitude:       gauge("altitude", "Current altitude"),
		throttle:       gauge("throttle_ratio", "Throttle applied in the last tick (0-1)"),
		efficiency:     gauge("altitude_efficiency_ratio", "Engine and lift derating from altitude (0-1)"),
		stallIntensity: gauge("stall_intensity_ratio", "Stall intensity (0-1)"),
		limiterActive:  gauge("aoa_limiter_active", "1 when the AoA limiter is enforcing its limit"),
		cooldown:       gauge("aoa_limiter_cooldown_seconds", "Seconds until the limiter override can be used again"),
		ticks:          gauge("ticks", "Completed simulation ticks"),
		limiterEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aoa_limiter_transitions_total",
			Help:      "AoA limiter mode changes by event type",
		}, []string{"aircraft", "event"}),
		stallEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stall_events_total",
			Help:      "Stall entries and recoveries",
		}, []string{"aircraft", "event"}),
	}

	r.registry.MustRegister(
		r.aoa, r.aoaCeiling, r.airspeed, r.altitude, r.throttle, r.efficiency,
		r.stallIntensity, r.limiterActive, r.cooldown, r.ticks,
		r.limiterEvents, r.stallEvents,
	)
	return r
}

// Registry returns the registry the recorder's collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Record sets every gauge from a snapshot.
func (r *Recorder) Record(s flight.Snapshot) {
	id := aircraftLabel(s.ID)
	r.aoa.WithLabelValues(id).Set(s.AoA)
	r.aoaCeiling.WithLabelValues(id).Set(s.AoACeiling)
	r.airspeed.WithLabelValues(id).Set(s.Speed)
	r.altitude.WithLabelValues(id).Set(s.Altitude)
	r.throttle.WithLabelValues(id).Set(s.Throttle)
	r.efficiency.WithLabelValues(id).Set(s.Efficiency)
	r.stallIntensity.WithLabelValues(id).Set(s.StallIntensity)
	r.limiterActive.WithLabelValues(id).Set(boolGauge(s.LimiterActive))
	r.cooldown.WithLabelValues(id).Set(s.CooldownRemaining)
	r.ticks.WithLabelValues(id).Set(float64(s.Tick))
}

// Forget drops all series for an aircraft.
func (r *Recorder) Forget(id uint64) {
	labels := prometheus.Labels{"aircraft": aircraftLabel(id)}
	for _, g := range []*prometheus.GaugeVec{
		r.aoa, r.aoaCeiling, r.airspeed, r.altitude, r.throttle, r.efficiency,
		r.stallIntensity, r.limiterActive, r.cooldown, r.ticks,
	} {
		g.Delete(labels)
	}
	r.limiterEvents.DeletePartialMatch(labels)
	r.stallEvents.DeletePartialMatch(labels)
}

// Subscribe counts limiter and stall events published on bus. The returned
// function cancels the subscriptions.
func (r *Recorder) Subscribe(bus *event.Bus) (cancel func()) {
	var subs []*event.Subscription
	for _, typ := range []event.Type{event.LimiterDisabled, event.CooldownStarted, event.CooldownEnded} {
		subs = append(subs, bus.Subscribe(typ, func(e event.Event) {
			if le, ok := e.(*event.LimiterEvent); ok {
				r.limiterEvents.WithLabelValues(aircraftLabel(le.AircraftID), string(le.GetType())).Inc()
			}
		}))
	}
	for _, typ := range []event.Type{event.StallEntered, event.StallRecovered} {
		subs = append(subs, bus.Subscribe(typ, func(e event.Event) {
			if se, ok := e.(*event.StallEvent); ok {
				r.stallEvents.WithLabelValues(aircraftLabel(se.AircraftID), string(se.GetType())).Inc()
			}
		}))
	}
	return func() {
		for _, s := range subs {
			s.Cancel()
		}
	}
}

func aircraftLabel(id uint64) string { return strconv.FormatUint(id, 10) }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
