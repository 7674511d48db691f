// Package cmd provides the lfsrclone command line.
package cmd

import "github.com/urfave/cli/v2"

// Flag names. Every flag also reads an LFSRCLONE_* environment variable.
const (
	flagLogFile     = "log-file"
	flagLogLevel    = "log-level"
	flagRcloneExe   = "rclone-exe"
	flagTempDir     = "temp-dir"
	flagAgentConfig = "agent-config"
)

// Defaults match a transfer agent started by git-lfs from the repository root.
const (
	DefaultLogFile   = ".git/lfsrclone.log"
	DefaultLogLevel  = "WARNING"
	DefaultRcloneExe = "rclone"
	DefaultTempDir   = ".git/lfsrclone-tmp"
)

// AgentFlags returns the flags owned by the agent. Any other flag on the
// command line is passed through to rclone.
func AgentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagLogFile,
			Usage:   "Diagnostic log destination",
			Value:   DefaultLogFile,
			EnvVars: []string{"LFSRCLONE_LOG_FILE"},
		},
		&cli.StringFlag{
			Name:    flagLogLevel,
			Usage:   "Log level: DEBUG, INFO, WARNING, ERROR, CRITICAL or NONE",
			Value:   DefaultLogLevel,
			EnvVars: []string{"LFSRCLONE_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    flagRcloneExe,
			Usage:   "rclone executable",
			Value:   DefaultRcloneExe,
			EnvVars: []string{"LFSRCLONE_RCLONE_EXE"},
		},
		&cli.StringFlag{
			Name:    flagTempDir,
			Usage:   "Download directory (empty: a fresh system temp directory per download)",
			Value:   DefaultTempDir,
			EnvVars: []string{"LFSRCLONE_TEMP_DIR"},
		},
		&cli.StringFlag{
			Name:    flagAgentConfig,
			Usage:   "Path to a YAML agent config file",
			EnvVars: []string{"LFSRCLONE_AGENT_CONFIG"},
		},
	}
}

// valueFlags lists agent flags that take a value.
func valueFlags() map[string]bool {
	return map[string]bool{
		flagLogFile:     true,
		flagLogLevel:    true,
		flagRcloneExe:   true,
		flagTempDir:     true,
		flagAgentConfig: true,
	}
}

// boolFlags lists agent flags without a value. -v is left to rclone.
func boolFlags() map[string]bool {
	return map[string]bool{
		"help":    true,
		"h":       true,
		"version": true,
	}
}
