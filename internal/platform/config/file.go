package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadFile overlays values from a YAML, TOML or JSON config file onto target.
// Keys map through mapstructure struct tags.
//
// Keys missing from the file leave the existing field values untouched, so
// env defaults parsed beforehand survive. An empty path is a no-op.
func LoadFile(path string, target any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if target == nil {
		return errors.New("config target is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}
