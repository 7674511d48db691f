package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lfsrclone/cli/config"
	"github.com/pithecene-io/lfsrclone/iox"
	"github.com/pithecene-io/lfsrclone/ipc"
	"github.com/pithecene-io/lfsrclone/log"
	"github.com/pithecene-io/lfsrclone/metrics"
	"github.com/pithecene-io/lfsrclone/runtime"
	"github.com/pithecene-io/lfsrclone/types"
)

// Exit codes.
const (
	exitSuccess = 0
	exitFailure = 1
)

// Settings is the resolved agent configuration.
type Settings struct {
	Remote     string
	RcloneExe  string
	TempDir    string
	LogFile    string
	LogLevel   string
	RcloneArgs []string
}

func (s *Settings) fields() map[string]any {
	return map[string]any{
		"remote":      s.Remote,
		"rclone_exe":  s.RcloneExe,
		"temp_dir":    s.TempDir,
		"log_file":    s.LogFile,
		"log_level":   s.LogLevel,
		"rclone_args": s.RcloneArgs,
	}
}

// NewApp returns the lfsrclone application. passthrough holds the rclone
// arguments already separated by SplitArgs; the app parses the rest.
// The protocol runs over app.Reader and app.Writer.
func NewApp(passthrough []string) *cli.App {
	return &cli.App{
		Name:            "lfsrclone",
		Usage:           "rclone-based custom transfer agent for git-lfs",
		UsageText:       "lfsrclone [options] REMOTE [rclone args...]",
		Description:     "All additional arguments are passed to rclone.",
		Version:         types.Version,
		HideHelpCommand: true,
		Flags:           AgentFlags(),
		Action:          agentAction(passthrough),
	}
}

// ResolveSettings merges the command line, the optional agent config file
// and the pass-through rclone arguments. Flags set explicitly (or through
// their environment variable) win over the config file; config rclone_args
// come before pass-through arguments.
func ResolveSettings(c *cli.Context, passthrough []string) (*Settings, error) {
	s := &Settings{
		RcloneExe: c.String(flagRcloneExe),
		TempDir:   c.String(flagTempDir),
		LogFile:   c.String(flagLogFile),
		LogLevel:  c.String(flagLogLevel),
	}

	var cfg config.Config
	if path := c.String(flagAgentConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	override := func(flag string, dst *string, value string) {
		if value != "" && !c.IsSet(flag) {
			*dst = value
		}
	}
	override(flagRcloneExe, &s.RcloneExe, cfg.RcloneExe)
	override(flagTempDir, &s.TempDir, cfg.TempDir)
	override(flagLogFile, &s.LogFile, cfg.LogFile)
	override(flagLogLevel, &s.LogLevel, cfg.LogLevel)

	s.Remote = cfg.Remote
	if c.Args().Present() {
		s.Remote = c.Args().First()
	}
	if s.Remote == "" {
		return nil, errors.New("an rclone remote is required")
	}
	if c.Args().Len() > 1 {
		return nil, fmt.Errorf("unexpected arguments after remote: %v", c.Args().Tail())
	}

	if _, _, err := log.ParseLevel(s.LogLevel); err != nil {
		return nil, err
	}

	s.RcloneArgs = append(append([]string{}, cfg.RcloneArgs...), passthrough...)
	return s, nil
}

func agentAction(passthrough []string) cli.ActionFunc {
	return func(c *cli.Context) error {
		settings, err := ResolveSettings(c, passthrough)
		if err != nil {
			return cli.Exit(fmt.Sprintf("lfsrclone: %v", err), exitFailure)
		}

		sessionID := uuid.NewString()
		logger, closer, err := log.Open(settings.LogFile, settings.LogLevel, log.Context{
			SessionID: sessionID,
			PID:       os.Getpid(),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("lfsrclone: %v", err), exitFailure)
		}
		defer iox.DiscardClose(closer)
		defer iox.DiscardErr(logger.Sync)

		logger.Sugar().Infof("lfsrclone %s starting", types.Version)
		logger.Debug("settings", settings.fields())

		sessionConfig := &runtime.SessionConfig{
			Remote:     settings.Remote,
			TempDir:    settings.TempDir,
			RcloneExe:  settings.RcloneExe,
			RcloneArgs: settings.RcloneArgs,
		}
		channel := ipc.NewChannel(c.App.Reader, c.App.Writer, logger)
		collector := metrics.NewCollector(settings.Remote, sessionID)

		session := runtime.NewSession(sessionConfig, channel, logger, collector)
		if err := session.Run(c.Context); err != nil {
			// Protocol violations were already logged by the session.
			if !runtime.IsProtocolError(err) {
				logger.Critical("session failed", map[string]any{"error": err.Error()})
			}
			return cli.Exit("", exitFailure)
		}

		return nil
	}
}
