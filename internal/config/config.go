// Package config provides configuration for go-sorter commands.
// Values come from environment variables with defaults that match the
// bench setup (BeagleBone on the USB network link, webcam on the host).
package config

import (
	"os"
	"strconv"
	"strings"
)

// Defaults for the bench deployment.
const (
	DefaultTriggerPort    = 6000
	DefaultTriggerKeyword = "start"
	DefaultResultHost     = "192.168.7.2"
	DefaultResultPort     = 5005
	DefaultStagingDir     = "images"
	DefaultFrameCount     = 3
	DefaultModelPath      = "models/paper_plastic.onnx"
	DefaultWebPort        = 8080
)

// Config holds process-wide settings. Build one with FromEnv and pass it
// into each component at construction; nothing reads the environment
// after startup.
type Config struct {
	// Trigger listener
	TriggerPort    int    // UDP port the bin controller sends "start" to
	TriggerKeyword string // recognized command, compared trimmed+lowercased

	// Result delivery
	ResultHost string // bin controller address
	ResultPort int    // UDP port the bin controller listens on

	// Capture
	StagingDir string // directory frames are staged in, cleared per run
	FrameCount int    // frames per run

	// Classifier
	ModelPath string   // ONNX model artifact
	Classes   []string // ordered class labels, index-aligned to model output

	// Status server; 0 disables it
	WebPort int

	LogLevel string
}

// FromEnv builds a Config from SORTER_* environment variables,
// falling back to bench defaults.
func FromEnv() Config {
	return Config{
		TriggerPort:    envInt("SORTER_TRIGGER_PORT", DefaultTriggerPort),
		TriggerKeyword: envStr("SORTER_TRIGGER_KEYWORD", DefaultTriggerKeyword),
		ResultHost:     envStr("SORTER_RESULT_HOST", DefaultResultHost),
		ResultPort:     envInt("SORTER_RESULT_PORT", DefaultResultPort),
		StagingDir:     envStr("SORTER_STAGING_DIR", DefaultStagingDir),
		FrameCount:     envInt("SORTER_FRAME_COUNT", DefaultFrameCount),
		ModelPath:      envStr("SORTER_MODEL_PATH", DefaultModelPath),
		Classes:        envList("SORTER_CLASSES", []string{"paper", "plastic"}),
		WebPort:        envInt("SORTER_WEB_PORT", DefaultWebPort),
		LogLevel:       envStr("SORTER_LOG_LEVEL", "info"),
	}
}

// Validate checks the config values. Returns a list of validation
// errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.TriggerPort < 1 || c.TriggerPort > 65535 {
		errors = append(errors, "trigger port must be between 1 and 65535")
	}
	if strings.TrimSpace(c.TriggerKeyword) == "" {
		errors = append(errors, "trigger keyword must not be empty")
	}
	if c.ResultHost == "" {
		errors = append(errors, "result host must not be empty")
	}
	if c.ResultPort < 1 || c.ResultPort > 65535 {
		errors = append(errors, "result port must be between 1 and 65535")
	}
	if c.StagingDir == "" {
		errors = append(errors, "staging dir must not be empty")
	}
	if c.FrameCount < 1 {
		errors = append(errors, "frame count must be at least 1")
	}
	if c.ModelPath == "" {
		errors = append(errors, "model path must not be empty")
	}
	if len(c.Classes) < 2 {
		errors = append(errors, "at least 2 classes are required")
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		errors = append(errors, "web port must be between 0 and 65535")
	}

	return errors
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}
