//go:build unix

package main

import (
	"syscall"
)

func init() {
	// Ctrl+Z and SIGTERM also abort a running fetch
	interruptSignals = append(interruptSignals, syscall.SIGTERM, syscall.SIGTSTP)
}
