// Package flags provides a config-backed ports.FeatureFlags implementation.
package flags

import (
	"context"
	"strconv"
	"strings"
)

// Static serves feature flags from a fixed map, typically the "flags"
// section of the service configuration.
type Static struct {
	values map[string]string
}

// NewStatic copies values. Flag names are case-insensitive.
func NewStatic(values map[string]string) *Static {
	s := &Static{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[strings.ToLower(k)] = strings.TrimSpace(v)
	}

	return s
}

// With returns a copy with flag set to value unless it is already present.
func (s *Static) With(flag, value string) *Static {
	out := NewStatic(s.values)
	if _, ok := out.values[strings.ToLower(flag)]; !ok {
		out.values[strings.ToLower(flag)] = value
	}

	return out
}

// IsEnabled implements ports.FeatureFlags.
func (s *Static) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	v, ok := s.lookup(flag)
	if !ok {
		return defaultValue
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}

// GetString implements ports.FeatureFlags.
func (s *Static) GetString(_ context.Context, flag, defaultValue string) string {
	if v, ok := s.lookup(flag); ok && v != "" {
		return v
	}

	return defaultValue
}

// GetInt implements ports.FeatureFlags.
func (s *Static) GetInt(_ context.Context, flag string, defaultValue int) int {
	v, ok := s.lookup(flag)
	if !ok {
		return defaultValue
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}

	return n
}

func (s *Static) lookup(flag string) (string, bool) {
	v, ok := s.values[strings.ToLower(flag)]
	return v, ok
}
