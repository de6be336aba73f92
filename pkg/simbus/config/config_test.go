package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/swarmlab/simbus/pkg/simbus/config"
)

// TestNew verifies Config creation from maps.
func TestNew(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil map", nil},
		{"empty map", map[string]any{}},
		{"with values", map[string]any{"key": "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.NotNil(t, cfg.Raw())
		})
	}
}

// TestString verifies string extraction with defaults.
func TestString(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal string
		want       string
	}{
		{"key exists", map[string]any{"name": "alice"}, "name", "default", "alice"},
		{"key missing", map[string]any{"other": "value"}, "name", "default", "default"},
		{"empty string", map[string]any{"name": ""}, "name", "default", ""},
		{"wrong type int", map[string]any{"name": 123}, "name", "default", "default"},
		{"nil map", nil, "name", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.String(tt.key, tt.defaultVal))
		})
	}
}

// TestDuration verifies duration extraction with various input types.
// Bare numbers are milliseconds.
func TestDuration(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal time.Duration
		want       time.Duration
	}{
		{"duration string", map[string]any{"d": "250ms"}, "d", time.Second, 250 * time.Millisecond},
		{"compound string", map[string]any{"d": "1m30s"}, "d", time.Second, 90 * time.Second},
		{"int milliseconds", map[string]any{"d": 100}, "d", time.Second, 100 * time.Millisecond},
		{"int64 milliseconds", map[string]any{"d": int64(500)}, "d", time.Second, 500 * time.Millisecond},
		{"float64 milliseconds", map[string]any{"d": 1.5}, "d", time.Second, 1500 * time.Microsecond},
		{"time.Duration passthrough", map[string]any{"d": 2 * time.Second}, "d", time.Second, 2 * time.Second},
		{"invalid string", map[string]any{"d": "not-a-duration"}, "d", time.Second, time.Second},
		{"wrong type", map[string]any{"d": true}, "d", time.Second, time.Second},
		{"key missing", nil, "d", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Duration(tt.key, tt.defaultVal))
		})
	}
}

// TestBool verifies boolean extraction with defaults.
func TestBool(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal bool
		want       bool
	}{
		{"true", map[string]any{"on": true}, "on", false, true},
		{"false", map[string]any{"on": false}, "on", true, false},
		{"wrong type string", map[string]any{"on": "true"}, "on", false, false},
		{"key missing", nil, "on", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Bool(tt.key, tt.defaultVal))
		})
	}
}

// TestInt verifies integer extraction, including JSON's float64 numbers.
func TestInt(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal int
		want       int
	}{
		{"int", map[string]any{"n": 42}, "n", 0, 42},
		{"int64", map[string]any{"n": int64(42)}, "n", 0, 42},
		{"whole float64", map[string]any{"n": float64(42)}, "n", 0, 42},
		{"fractional float64", map[string]any{"n": 42.5}, "n", 7, 7},
		{"wrong type", map[string]any{"n": "42"}, "n", 7, 7},
		{"key missing", nil, "n", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Int(tt.key, tt.defaultVal))
		})
	}
}

// TestFloat verifies float extraction with numeric widening.
func TestFloat(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal float64
		want       float64
	}{
		{"float64", map[string]any{"f": 1.5}, "f", 0, 1.5},
		{"int", map[string]any{"f": 3}, "f", 0, 3.0},
		{"int64", map[string]any{"f": int64(4)}, "f", 0, 4.0},
		{"wrong type", map[string]any{"f": "1.5"}, "f", 9.9, 9.9},
		{"key missing", nil, "f", 9.9, 9.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Float(tt.key, tt.defaultVal))
		})
	}
}

// TestStrings verifies string slice extraction, including YAML's []any form.
func TestStrings(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal []string
		want       []string
	}{
		{"string slice", map[string]any{"s": []string{"a", "b"}}, "s", nil, []string{"a", "b"}},
		{"any slice", map[string]any{"s": []any{"a", "b"}}, "s", nil, []string{"a", "b"}},
		{"mixed any slice", map[string]any{"s": []any{"a", 2}}, "s", []string{"d"}, []string{"d"}},
		{"wrong type", map[string]any{"s": "a"}, "s", []string{"d"}, []string{"d"}},
		{"key missing", nil, "s", []string{"d"}, []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Strings(tt.key, tt.defaultVal))
		})
	}
}

// TestHas verifies key presence detection.
func TestHas(t *testing.T) {
	cfg := config.New(map[string]any{"present": nil})
	assert.True(t, cfg.Has("present"))
	assert.False(t, cfg.Has("absent"))
}
