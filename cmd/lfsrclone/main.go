// Package main provides the lfsrclone entrypoint, a git-lfs custom
// transfer agent backed by rclone.
//
// Usage:
//
//	lfsrclone [options] REMOTE [rclone args...]
//
// git-lfs speaks the transfer protocol on stdin and stdout. Arguments
// that are not agent options are passed to every rclone invocation.
//
// Exit codes:
//   - 0: terminate received
//   - 1: protocol violation, malformed input or startup failure
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lfsrclone/cli/cmd"
	"github.com/pithecene-io/lfsrclone/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	agentArgs, passthrough := cmd.SplitArgs(os.Args[1:])

	app := cmd.NewApp(passthrough)
	app.Version = fmt.Sprintf("%s (commit: %s)", types.Version, commit)
	app.ExitErrHandler = exitErrHandler

	if err := app.Run(append([]string{os.Args[0]}, agentArgs...)); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler prints the message carried by a cli.Exit error, if any,
// and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitMessage(exitCoder); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// exitMessage returns the text worth printing for an exit error.
// cli.Exit("", N) renders as "exit status N", which is suppressed.
func exitMessage(exitCoder cli.ExitCoder) string {
	msg := exitCoder.Error()
	if msg == fmt.Sprintf("exit status %d", exitCoder.ExitCode()) {
		return ""
	}
	return msg
}
