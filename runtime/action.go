package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/pithecene-io/lfsrclone/log"
	"github.com/pithecene-io/lfsrclone/metrics"
	"github.com/pithecene-io/lfsrclone/types"
)

// Emitter writes protocol events to git-lfs.
type Emitter interface {
	Write(v any) error
}

// ActionExecutor performs one upload or download through rclone.
type ActionExecutor struct {
	config    *SessionConfig
	out       Emitter
	logger    *log.Logger
	collector *metrics.Collector
}

// NewActionExecutor creates an action executor.
func NewActionExecutor(config *SessionConfig, out Emitter, logger *log.Logger, collector *metrics.Collector) *ActionExecutor {
	return &ActionExecutor{
		config:    config,
		out:       out,
		logger:    logger,
		collector: collector,
	}
}

// Execute transfers the object named by msg and emits its progress events
// followed by exactly one complete event, which is also returned.
//
// rclone failures are reported inside the complete event. The returned error
// is non-nil only when an event could not be written to git-lfs.
func (e *ActionExecutor) Execute(ctx context.Context, msg types.Message) (*types.CompleteEvent, error) {
	var oid string
	var size int64
	switch m := msg.(type) {
	case types.UploadMessage:
		oid, size = m.Oid, m.Size
		e.collector.IncUploadStarted()
	case types.DownloadMessage:
		oid, size = m.Oid, m.Size
		e.collector.IncDownloadStarted()
	default:
		return nil, fmt.Errorf("cannot execute %s event", msg.Event())
	}

	translator := NewLogTranslator(oid, size, func(p *types.ProgressEvent) error {
		return e.out.Write(p)
	}, e.logger, e.collector)

	complete := types.NewCompleteEvent(oid)
	exitCode := 0

	inv, err := BuildInvocation(e.config, msg)
	if err != nil {
		translator.AddError(err.Error())
	} else {
		if inv.DownloadPath != "" {
			complete.Path = inv.DownloadPath
		}
		exitCode, err = e.run(ctx, inv, translator)
		if err != nil {
			return nil, err
		}
	}

	if err := translator.Finish(); err != nil {
		return nil, err
	}

	if errs := translator.Errors(); exitCode != 0 || len(errs) > 0 {
		complete.Error = &types.ActionError{
			Code:    max(exitCode, 1),
			Message: strings.Join(errs, "\n"),
		}
		e.logger.Debug("error lines", map[string]any{
			"oid":       oid,
			"exit_code": exitCode,
			"errors":    errs,
		})
	}

	if err := e.out.Write(complete); err != nil {
		return nil, err
	}
	e.collector.RecordCompletion(complete.Failed(), size)

	return complete, nil
}

// run starts rclone, drains its log stream and waits for it.
// Launch and wait failures are buffered on the translator.
func (e *ActionExecutor) run(ctx context.Context, inv *Invocation, translator *LogTranslator) (int, error) {
	e.logger.Debug("calling rclone", map[string]any{
		"cmd": inv.Process.CommandLine(),
	})

	var proc Process
	if e.config.ProcessFactory != nil {
		proc = e.config.ProcessFactory(inv.Process)
	} else {
		proc = NewProcessManager(inv.Process)
	}

	if err := proc.Start(ctx); err != nil {
		e.collector.IncRcloneLaunchFailure()
		e.logger.Error("failed to start rclone", map[string]any{
			"error": err.Error(),
		})
		translator.AddError(err.Error())
		return 1, nil
	}

	// Consume must reach EOF before Wait: exec.Cmd.Wait closes the stderr pipe.
	if err := translator.Consume(proc.Stderr()); err != nil {
		_ = proc.Kill()
		_, _ = proc.Wait()
		return 0, err
	}

	result, err := proc.Wait()
	if err != nil {
		translator.AddError(err.Error())
		return 1, nil
	}
	return result.ExitCode, nil
}
