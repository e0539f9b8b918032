package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateUpstream(cfg.Upstream); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateReconciler(cfg.Reconciler); err != nil {
		errors = append(errors, err)
	}

	if err := validatePreferences(cfg.Preferences, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateUpstream(cfg UpstreamConfig) error {
	if cfg.BaseURL == "" {
		return &ValidationError{
			Field:   "upstream.base_url",
			Message: "upstream base URL is required",
		}
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return &ValidationError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("not a valid URL: %v", err),
		}
	}

	if cfg.RequestTimeout <= 0 {
		return &ValidationError{
			Field:   "upstream.request_timeout",
			Message: "request timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one kafka broker is required",
		}
	}

	if cfg.Kafka.DeltaTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.delta_topic",
			Message: "delta topic is required",
		}
	}

	return nil
}

func validateReconciler(cfg ReconcilerConfig) error {
	if cfg.RefreshInterval <= 0 {
		return &ValidationError{
			Field:   "reconciler.refresh_interval",
			Message: "refresh interval must be positive",
		}
	}

	if cfg.SnapshotLimit < 1 {
		return &ValidationError{
			Field:   "reconciler.snapshot_limit",
			Message: fmt.Sprintf("snapshot limit must be at least 1, got %d", cfg.SnapshotLimit),
		}
	}

	switch cfg.MessageType {
	case "realtime", "planned":
	default:
		return &ValidationError{
			Field:   "reconciler.message_type",
			Message: fmt.Sprintf("unknown message type: %s (supported: realtime, planned)", cfg.MessageType),
		}
	}

	return nil
}

func validatePreferences(cfg PreferencesConfig, db DatabaseConfig) error {
	switch cfg.Backend {
	case "memory":
	case "redis":
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "redis host is required when preferences backend is redis",
			}
		}
	default:
		return &ValidationError{
			Field:   "preferences.backend",
			Message: fmt.Sprintf("unknown backend: %s (supported: redis, memory)", cfg.Backend),
		}
	}

	if cfg.Key == "" {
		return &ValidationError{
			Field:   "preferences.key",
			Message: "preferences key is required",
		}
	}

	return nil
}
