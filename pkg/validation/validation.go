// Package validation checks remote pilot input before it reaches the
// session controls.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Request limits for remote control input.
const (
	MaxControlBodySize    = 4 * 1024
	MaxControlRequestsPer = 120 // per minute per client
)

// ErrEmptyControlRequest is returned when a request sets nothing.
var ErrEmptyControlRequest = errors.New("control request sets neither throttle nor aoa_held")

// ControlRequest is a partial update of the pilot controls. Nil fields are
// left unchanged.
type ControlRequest struct {
	Throttle *float64 `json:"throttle,omitempty"`
	AoAHeld  *bool    `json:"aoa_held,omitempty"`
}

// DecodeControlRequest reads and validates a control request body.
func DecodeControlRequest(r io.Reader) (ControlRequest, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxControlBodySize+1))
	if err != nil {
		return ControlRequest{}, fmt.Errorf("failed to read request: %w", err)
	}
	if len(data) > MaxControlBodySize {
		return ControlRequest{}, fmt.Errorf("request too large (max %d bytes)", MaxControlBodySize)
	}
	if !json.Valid(data) {
		return ControlRequest{}, errors.New("invalid JSON payload")
	}

	var req ControlRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return ControlRequest{}, fmt.Errorf("invalid control request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return ControlRequest{}, err
	}
	return req, nil
}

// Validate checks the request's values.
func (r ControlRequest) Validate() error {
	if r.Throttle == nil && r.AoAHeld == nil {
		return ErrEmptyControlRequest
	}
	if r.Throttle != nil {
		if err := ValidateThrottle(*r.Throttle); err != nil {
			return err
		}
	}
	return nil
}

// ValidateThrottle rejects throttle values outside [0, 1].
func ValidateThrottle(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("throttle must be within [0, 1], got %g", t)
	}
	return nil
}
