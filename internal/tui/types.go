// Package tui provides the interactive reputation dashboard.
package tui

import (
	"github.com/trustplane/trustplane/internal/controlplane"
)

// serversLoadedMsg carries a refreshed server listing.
type serversLoadedMsg struct {
	servers []controlplane.ServerStatus
}

// execDoneMsg carries the result of a routed execution.
type execDoneMsg struct {
	result *controlplane.TaskResult
}

// errMsg carries an API error.
type errMsg struct {
	err error
}
