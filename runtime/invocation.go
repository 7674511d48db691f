package runtime

import (
	"fmt"
	"os"

	"github.com/pithecene-io/lfsrclone/remote"
	"github.com/pithecene-io/lfsrclone/types"
)

// fixedRcloneFlags are appended to every copy. --size-only (not
// --ignore-existing) so a partially written object is copied again.
var fixedRcloneFlags = []string{
	"--size-only",
	"--no-traverse",
	"--use-json-log",
	"--log-level", "INFO",
	"--ask-password=false",
}

// SessionConfig is the configuration shared by every action of a session.
type SessionConfig struct {
	// Remote is the rclone remote (and optional path) holding the object store.
	Remote string
	// TempDir receives downloads. When empty, each download gets a fresh
	// directory from os.MkdirTemp.
	TempDir string
	// RcloneExe is the rclone executable.
	RcloneExe string
	// RcloneArgs are appended after the fixed flags and can override them.
	RcloneArgs []string
	// ProcessFactory overrides process creation (for testing).
	// If nil, uses NewProcessManager.
	ProcessFactory ProcessFactory
}

// Invocation is the resolved rclone copy for one action.
type Invocation struct {
	Src string
	Dst string
	// DownloadPath is where the object lands; empty for uploads.
	DownloadPath string
	Process      *ProcessConfig
}

// BuildInvocation resolves source, destination and arguments for msg,
// which must be an UploadMessage or DownloadMessage.
func BuildInvocation(config *SessionConfig, msg types.Message) (*Invocation, error) {
	inv := &Invocation{}

	switch m := msg.(type) {
	case types.UploadMessage:
		dst, err := remote.ObjectDir(config.Remote, m.Oid)
		if err != nil {
			return nil, err
		}
		inv.Src = m.Path
		inv.Dst = dst

	case types.DownloadMessage:
		src, err := remote.ObjectPath(config.Remote, m.Oid)
		if err != nil {
			return nil, err
		}
		dst := config.TempDir
		if dst == "" {
			dst, err = os.MkdirTemp("", "lfsrclone-")
			if err != nil {
				return nil, fmt.Errorf("failed to create temp directory: %w", err)
			}
		}
		inv.Src = src
		inv.Dst = dst
		inv.DownloadPath = dst + "/" + m.Oid

	default:
		return nil, fmt.Errorf("no invocation for %s event", msg.Event())
	}

	args := make([]string, 0, 3+len(fixedRcloneFlags)+len(config.RcloneArgs))
	args = append(args, "copy", inv.Src, inv.Dst)
	args = append(args, fixedRcloneFlags...)
	args = append(args, config.RcloneArgs...)

	exe := config.RcloneExe
	if exe == "" {
		exe = "rclone"
	}
	inv.Process = &ProcessConfig{ExePath: exe, Args: args}

	return inv, nil
}
