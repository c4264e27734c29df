package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from the process environment into target.
func ParseEnv(target any) error {
	return parseEnv(target, env.Options{})
}

// ParseEnvFrom loads configuration from environ instead of the process
// environment.
func ParseEnvFrom(environ map[string]string, target any) error {
	if environ == nil {
		environ = map[string]string{}
	}
	return parseEnv(target, env.Options{Environment: environ})
}

// parseEnv reports every offending variable at once rather than only the first.
func parseEnv(target any, opts env.Options) error {
	err := env.ParseWithOptions(target, opts)
	if err == nil {
		return nil
	}
	var aggregate env.AggregateError
	if errors.As(err, &aggregate) && len(aggregate.Errors) > 0 {
		return fmt.Errorf("parse env: %w", errors.Join(aggregate.Errors...))
	}
	return fmt.Errorf("parse env: %w", err)
}
