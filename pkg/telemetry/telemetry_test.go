package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/event"
	"github.com/opd-ai/go-aerocontrol/pkg/flight"
	"github.com/opd-ai/go-aerocontrol/pkg/health"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
	"github.com/opd-ai/go-aerocontrol/pkg/physics"
	"github.com/opd-ai/go-aerocontrol/pkg/validation"
)

const step = 1.0 / 60

func newFlight(t *testing.T, controls *input.Controls) (*flight.FlightSystem, *flight.Aircraft) {
	t.Helper()
	cfg := config.DefaultConfig()
	state := physics.BodyState{
		Position:       mgl64.Vec3{0, cfg.Spawn.Altitude, 0},
		Orientation:    mgl64.QuatIdent(),
		LinearVelocity: physics.Forward.Mul(cfg.Spawn.Speed),
		Mass:           cfg.Physics.Mass,
	}
	integrator := physics.IntegratorConfig{
		Gravity:        cfg.Physics.Gravity,
		AngularDamping: cfg.Physics.AngularDamping,
		Inertia:        cfg.Physics.Inertia,
	}
	opts := flight.Options{}
	if controls != nil {
		opts.Source = controls
	}
	a := flight.NewAircraft(state, integrator, config.DefaultProfile(), input.NewLookRig(cfg.Look, &input.Handoff{}), opts)
	fs := flight.NewFlightSystem(step)
	fs.Add(a)
	return fs, a
}

func TestRecorder_Record(t *testing.T) {
	r := NewRecorder()
	r.Record(flight.Snapshot{ID: 3, Tick: 12, AoA: 7.5, AoACeiling: 14, Speed: 82, Altitude: 1490, Throttle: 0.8, LimiterActive: true, CooldownRemaining: 1.5})

	id := "3"
	assert.Equal(t, 7.5, testutil.ToFloat64(r.aoa.WithLabelValues(id)))
	assert.Equal(t, 14.0, testutil.ToFloat64(r.aoaCeiling.WithLabelValues(id)))
	assert.Equal(t, 82.0, testutil.ToFloat64(r.airspeed.WithLabelValues(id)))
	assert.Equal(t, 1490.0, testutil.ToFloat64(r.altitude.WithLabelValues(id)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.limiterActive.WithLabelValues(id)))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.cooldown.WithLabelValues(id)))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.ticks.WithLabelValues(id)))

	r.Forget(3)
	assert.Equal(t, 0, testutil.CollectAndCount(r.aoa))
}

func TestRecorder_CountsEvents(t *testing.T) {
	r := NewRecorder()
	bus := event.NewEventBus()
	cancel := r.Subscribe(bus)

	bus.Publish(event.NewLimiterEvent(event.LimiterDisabled, "loop", 1, "normal", "disabled", 12, 0))
	bus.Publish(event.NewLimiterEvent(event.CooldownStarted, "loop", 1, "disabled", "cooldown", 12, 3))
	bus.Publish(event.NewStallEvent(event.StallEntered, "loop", 1, 30, 0.4, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.limiterEvents.WithLabelValues("1", string(event.LimiterDisabled))))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.limiterEvents.WithLabelValues("1", string(event.CooldownStarted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stallEvents.WithLabelValues("1", string(event.StallEntered))))

	cancel()
	bus.Publish(event.NewStallEvent(event.StallEntered, "loop", 1, 30, 0.4, 0))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stallEvents.WithLabelValues("1", string(event.StallEntered))))
}

func TestSampler_Interval(t *testing.T) {
	fs, a := newFlight(t, input.NewControls(0.8))
	s := NewSampler(fs, NewRecorder(), 3)
	assert.Empty(t, s.State())

	for i := 0; i < 2; i++ {
		fs.Update(float32(step))
		s.Update(float32(step))
	}
	assert.Empty(t, s.State(), "no sample before the interval elapses")

	fs.Update(float32(step))
	s.Update(float32(step))
	require.Len(t, s.State(), 1)
	assert.Equal(t, uint64(3), s.State()[0].Tick)

	snap, ok := s.Lookup(a.ID())
	require.True(t, ok)
	assert.Equal(t, a.ID(), snap.ID)
	_, ok = s.Lookup(a.ID() + 1000)
	assert.False(t, ok)
	assert.Less(t, s.Priority(), fs.Priority())
}

func TestServer_Routes(t *testing.T) {
	controls := input.NewControls(0.8)
	fs, a := newFlight(t, controls)
	rec := NewRecorder()
	sampler := NewSampler(fs, rec, 1)
	fs.Update(float32(step))
	sampler.Update(float32(step))

	checker := health.NewChecker()
	checker.AddCheck(health.NewSessionCheck(func() bool { return false }))
	srv := NewServer(ServerOptions{Recorder: rec, State: sampler, Health: checker, Controls: controls})
	h := srv.Handler()

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		expected int
		contains string
	}{
		{"metrics", "GET", "/metrics", "", http.StatusOK, "flight_aoa_degrees"},
		{"state", "GET", "/state", "", http.StatusOK, `"limiter_mode":"normal"`},
		{"aircraft", "GET", "/state/" + strconv.FormatUint(a.ID(), 10), "", http.StatusOK, `"tick":1`},
		{"unknown_aircraft", "GET", "/state/999999", "", http.StatusNotFound, "not found"},
		{"liveness", "GET", "/healthz", "", http.StatusOK, "alive"},
		{"readiness", "GET", "/readyz", "", http.StatusServiceUnavailable, "unhealthy"},
		{"bad_controls", "POST", "/controls", "{", http.StatusBadRequest, "invalid"},
		{"throttle_out_of_range", "POST", "/controls", `{"throttle":1.5}`, http.StatusBadRequest, "throttle"},
		{"empty_controls", "POST", "/controls", `{}`, http.StatusBadRequest, "neither"},
		{"unknown_field", "POST", "/controls", `{"flaps":1}`, http.StatusBadRequest, "unknown field"},
		{"preflight", "OPTIONS", "/controls", "", http.StatusOK, ""},
		{"wrong_method", "POST", "/state", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.expected, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.contains)
		})
	}
}

func TestServer_PostControls(t *testing.T) {
	controls := input.NewControls(0.8)
	fs, _ := newFlight(t, controls)
	srv := NewServer(ServerOptions{Recorder: NewRecorder(), State: NewSampler(fs, nil, 1), Controls: controls})

	req := httptest.NewRequest("POST", "/controls", strings.NewReader(`{"throttle":0.25,"aoa_held":true}`))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 0.25, got["throttle"])
	assert.Equal(t, true, got["aoa_held"])

	throttle, ok := controls.Throttle()
	assert.True(t, ok)
	assert.Equal(t, 0.25, throttle)
	assert.True(t, controls.AoAHeld())
}

func TestServer_ControlsRateLimited(t *testing.T) {
	controls := input.NewControls(0.8)
	fs, _ := newFlight(t, controls)
	srv := NewServer(ServerOptions{
		Recorder: NewRecorder(),
		State:    NewSampler(fs, nil, 1),
		Controls: controls,
		Limiter:  validation.NewRateLimiter(2, time.Hour),
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/controls", strings.NewReader(`{"aoa_held":true}`))
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServer_StartAndShutdown(t *testing.T) {
	fs, _ := newFlight(t, nil)
	srv := NewServer(ServerOptions{Recorder: NewRecorder(), State: NewSampler(fs, nil, 1)})
	assert.Empty(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx, "127.0.0.1:0"))
	require.NotEmpty(t, srv.Addr())
	assert.Error(t, srv.Start(ctx, "127.0.0.1:0"))

	resp, err := http.Get("http://" + srv.Addr() + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.Empty(t, srv.Addr())
}

type fixedState []flight.Snapshot

func (f fixedState) State() []flight.Snapshot { return f }

func (f fixedState) Lookup(id uint64) (flight.Snapshot, bool) {
	for _, s := range f {
		if s.ID == id {
			return s, true
		}
	}
	return flight.Snapshot{}, false
}

func TestServer_EncodeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	srv := NewServer(ServerOptions{
		Recorder: NewRecorder(),
		State:    fixedState{{ID: 1, AoA: math.NaN()}},
		Logger:   logging.NewLoggerWithWriter(&buf, slog.LevelDebug),
	})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/state/1", nil))

	assert.Equal(t, http.StatusOK, rr.Code, "status is committed before encoding")
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotContains(t, rr.Body.String(), "unsupported value")
	assert.Contains(t, buf.String(), "failed to encode response")
	assert.Contains(t, buf.String(), "/state/1")
}
