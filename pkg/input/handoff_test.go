package input

import (
	"sync"
	"testing"
)

func TestHandoff_LastWriteWins(t *testing.T) {
	var h Handoff
	if _, ok := h.Load(); ok {
		t.Fatal("empty handoff should report no value")
	}

	h.Store(ControlVector{Pitch: 0.2})
	h.Store(ControlVector{Pitch: -0.4, Roll: 0.9})
	got, ok := h.Load()
	if !ok || got != (ControlVector{Pitch: -0.4, Roll: 0.9}) {
		t.Errorf("Load() = %+v, %v", got, ok)
	}
}

func TestHandoff_ConcurrentProducerConsumer(t *testing.T) {
	var h Handoff
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			v := float64(i) / 1000
			h.Store(ControlVector{Pitch: v, Roll: v})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if v, ok := h.Load(); ok && v.Pitch != v.Roll {
				t.Errorf("torn read: %+v", v)
				return
			}
		}
	}()
	wg.Wait()
}

func TestControls(t *testing.T) {
	var zero Controls
	if _, ok := zero.Throttle(); ok {
		t.Error("zero Controls should report no throttle input")
	}
	if zero.AoAHeld() {
		t.Error("zero Controls should not hold the override")
	}

	tests := []struct {
		name     string
		initial  float64
		adjust   float64
		expected float64
	}{
		{"increase", 0.5, 0.25, 0.75},
		{"clamp_high", 0.9, 0.5, 1},
		{"clamp_low", 0.1, -0.5, 0},
		{"initial_clamped", 3, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewControls(tt.initial)
			if got := c.AdjustThrottle(tt.adjust); got != tt.expected {
				t.Errorf("AdjustThrottle() = %f, expected %f", got, tt.expected)
			}
			if got, ok := c.Throttle(); !ok || got != tt.expected {
				t.Errorf("Throttle() = %f, %v", got, ok)
			}
		})
	}

	c := NewControls(0)
	c.SetAoAHeld(true)
	if !c.AoAHeld() {
		t.Error("SetAoAHeld(true) not observed")
	}
}

func TestControls_ConcurrentAdjust(t *testing.T) {
	c := NewControls(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.AdjustThrottle(0.01)
			}
		}()
	}
	wg.Wait()

	got, _ := c.Throttle()
	if got < 0.79 || got > 0.81 {
		t.Errorf("Throttle() = %f, expected ~0.8", got)
	}
}
