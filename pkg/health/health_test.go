package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mockCheck implements Check for testing
type mockCheck struct {
	name    string
	healthy bool
}

func (m *mockCheck) Name() string { return m.name }

func (m *mockCheck) Check(ctx context.Context) error {
	if !m.healthy {
		return errors.New("mock check failed")
	}
	return nil
}

func TestChecker_AddRemove(t *testing.T) {
	hc := NewChecker()
	check := &mockCheck{name: "test", healthy: true}
	hc.AddCheck(check)

	if hc.checks["test"] != check {
		t.Fatal("check not stored")
	}
	hc.AddCheck(&mockCheck{name: "test"})
	if len(hc.checks) != 1 {
		t.Errorf("same-name check should replace, got %d checks", len(hc.checks))
	}
	hc.RemoveCheck("test")
	if len(hc.checks) != 0 {
		t.Errorf("expected 0 checks after removal, got %d", len(hc.checks))
	}
}

func TestChecker_CheckHealth(t *testing.T) {
	tests := []struct {
		name     string
		checks   []*mockCheck
		expected string
	}{
		{"no checks - healthy", nil, "healthy"},
		{"all healthy", []*mockCheck{{name: "a", healthy: true}, {name: "b", healthy: true}}, "healthy"},
		{"one unhealthy", []*mockCheck{{name: "a", healthy: true}, {name: "b"}}, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker()
			for _, c := range tt.checks {
				hc.AddCheck(c)
			}
			status := hc.CheckHealth(context.Background())
			if status.Status != tt.expected {
				t.Errorf("Status = %q, expected %q", status.Status, tt.expected)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("expected %d check results, got %d", len(tt.checks), len(status.Checks))
			}
		})
	}
}

func TestChecker_Handlers(t *testing.T) {
	hc := NewChecker()

	rec := httptest.NewRecorder()
	hc.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness code = %d", rec.Code)
	}

	running := false
	hc.AddCheck(NewSessionCheck(func() bool { return running }))

	rec = httptest.NewRecorder()
	hc.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness code = %d, expected 503", rec.Code)
	}
	var body Status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checks["session"].Status != "unhealthy" {
		t.Errorf("unexpected body %+v", body)
	}

	running = true
	rec = httptest.NewRecorder()
	hc.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readiness code = %d, expected 200", rec.Code)
	}
}

func TestTickProgressCheck(t *testing.T) {
	var ticks uint64
	clock := time.Unix(1000, 0)
	check := NewTickProgressCheck(func() uint64 { return ticks }, 2*time.Second)
	check.now = func() time.Time { return clock }
	ctx := context.Background()

	if err := check.Check(ctx); err != nil {
		t.Fatalf("first check should pass: %v", err)
	}
	clock = clock.Add(1 * time.Second)
	if err := check.Check(ctx); err != nil {
		t.Errorf("idle within limit should pass: %v", err)
	}
	clock = clock.Add(2 * time.Second)
	if err := check.Check(ctx); err == nil {
		t.Error("idle beyond limit should fail")
	}

	ticks = 10
	if err := check.Check(ctx); err != nil {
		t.Errorf("progress should clear the failure: %v", err)
	}
	if check.Name() != "tick_progress" {
		t.Errorf("Name() = %q", check.Name())
	}
}

func TestListenerCheck(t *testing.T) {
	addr := ""
	check := NewListenerCheck(func() string { return addr })
	if check.Check(context.Background()) == nil {
		t.Error("empty address should fail")
	}
	addr = "127.0.0.1:9464"
	if err := check.Check(context.Background()); err != nil {
		t.Errorf("bound address should pass: %v", err)
	}
}

func TestMemoryCheck(t *testing.T) {
	tests := []struct {
		name    string
		usage   int64
		limit   int64
		wantErr bool
	}{
		{"under limit", 100, 500, false},
		{"at limit", 500, 500, false},
		{"over limit", 600, 500, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewMemoryCheck(tt.limit, func() int64 { return tt.usage })
			if err := check.Check(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if NewMemoryCheck(1<<20, nil).Check(context.Background()) != nil {
		t.Error("default heap getter should be well under a terabyte")
	}
}
