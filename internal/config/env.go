package config

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Loader produces a Model from a workspace file. A missing file is not an
// error: the loader falls back to Default rooted at the file's directory.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// EnvOverrides reads the MODGRID_* environment variables.
func EnvOverrides() (Overrides, error) {
	var o Overrides
	if err := ParseEnv(&o); err != nil {
		return Overrides{}, err
	}
	return o, nil
}
