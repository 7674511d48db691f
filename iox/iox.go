// Package iox holds small I/O helpers shared by the agent's packages.
package iox

import "io"

// NopCloser is an io.Closer whose Close does nothing. It stands in for the
// log file when logging is disabled.
var NopCloser io.Closer = nopCloser{}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// DiscardClose closes c and drops the error. A nil c is ignored.
//
//	defer iox.DiscardClose(logFile)
func DiscardClose(c io.Closer) {
	if c == nil {
		return
	}
	_ = c.Close()
}

// DiscardErr calls fn and drops its error, for deferred Sync and Flush
// calls whose failure cannot be reported anywhere.
//
//	defer iox.DiscardErr(logger.Sync)
func DiscardErr(fn func() error) { _ = fn() }
