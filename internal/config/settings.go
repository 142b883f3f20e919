package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by LoadSettings.
const EnvPrefix = "FRINGEPROC"

// Settings holds the application configuration.
type Settings struct {
	LogLevel    string            `mapstructure:"log_level"`
	CatalogPath string            `mapstructure:"catalog_path"`
	Open        OpenSettings      `mapstructure:"open"`
	Status      StatusSettings    `mapstructure:"status"`
	State       StateSettings     `mapstructure:"state"`
	Telemetry   TelemetrySettings `mapstructure:"telemetry"`
}

// OpenSettings controls retries of failed file loads.
type OpenSettings struct {
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// StatusSettings throttles progress messages on the status line.
type StatusSettings struct {
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StateSettings configures validation of state transitions.
type StateSettings struct {
	// LenientVocabulary drops unknown flags from a transition request instead
	// of rejecting it, as long as one known flag remains.
	LenientVocabulary bool `mapstructure:"lenient_vocabulary"`
}

// TelemetrySettings configures the OTLP exporters. An empty endpoint disables export.
type TelemetrySettings struct {
	Endpoint      string  `mapstructure:"endpoint"`
	ServiceName   string  `mapstructure:"service_name"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog_path", "")
	v.SetDefault("open.max_retries", 2)
	v.SetDefault("open.initial_interval", 200*time.Millisecond)
	v.SetDefault("open.max_elapsed_time", 10*time.Second)
	v.SetDefault("status.messages_per_second", 4.0)
	v.SetDefault("status.burst", 1)
	v.SetDefault("state.lenient_vocabulary", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "fringeproc")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
}

// LoadSettings reads settings from the optional file at path, then applies
// FRINGEPROC_* environment overrides (e.g. FRINGEPROC_OPEN_MAX_RETRIES).
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings that cannot drive the application.
func (s *Settings) Validate() error {
	if s.Status.MessagesPerSecond <= 0 {
		return fmt.Errorf("status.messages_per_second must be positive, got %v", s.Status.MessagesPerSecond)
	}
	if s.Status.Burst < 1 {
		return fmt.Errorf("status.burst must be at least 1, got %d", s.Status.Burst)
	}
	if s.Telemetry.SamplingRatio < 0 || s.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be within [0, 1], got %v", s.Telemetry.SamplingRatio)
	}
	return nil
}
