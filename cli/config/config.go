package config

import (
	"fmt"

	"github.com/pithecene-io/lfsrclone/log"
)

// Config represents an lfsrclone agent config file.
// All values are optional and act as defaults for the command line.
// Command-line flags always override config values.
type Config struct {
	// Remote is the rclone remote holding the object store, e.g. "remote:lfs".
	Remote string `yaml:"remote"`
	// RcloneExe is the rclone executable.
	RcloneExe string `yaml:"rclone_exe"`
	// TempDir is the download directory.
	TempDir string `yaml:"temp_dir"`
	// LogFile is the diagnostic log destination.
	LogFile string `yaml:"log_file"`
	// LogLevel is one of DEBUG, INFO, WARNING, ERROR, CRITICAL, NONE.
	LogLevel string `yaml:"log_level"`
	// RcloneArgs are passed to every rclone invocation, before any
	// arguments given on the command line.
	RcloneArgs []string `yaml:"rclone_args"`
}

// Validate checks values that can be checked without touching the system.
func (c *Config) Validate() error {
	if _, _, err := log.ParseLevel(c.LogLevel); err != nil {
		return &FieldError{Field: "log_level", Value: c.LogLevel, Reason: "must be DEBUG, INFO, WARNING, ERROR, CRITICAL or NONE"}
	}
	return nil
}

// FieldError reports an invalid config value.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
