//go:build !unix

package main

import (
	"os"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

var userSignals []os.Signal

func userSignalCommand(os.Signal) (logic.Command, bool) {
	return 0, false
}
