//go:build unix

package main

import (
	"os"
	"syscall"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

// userSignals stand in for the display wake line on hosts without one.
var userSignals = []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2}

func userSignalCommand(s os.Signal) (logic.Command, bool) {
	switch s {
	case syscall.SIGUSR1:
		return logic.CommandEnterBackground, true
	case syscall.SIGUSR2:
		return logic.CommandExitBackground, true
	}
	return 0, false
}
