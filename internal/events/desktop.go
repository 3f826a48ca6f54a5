// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package events

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// DesktopNotifier pops a native OS notification for long-running
// reconciliation/ingest completions, running alongside the WebSocket
// broadcaster rather than replacing it.
type DesktopNotifier struct {
	appName string
}

// NewDesktopNotifier constructs a notifier that labels alerts with appName.
func NewDesktopNotifier(appName string) *DesktopNotifier {
	return &DesktopNotifier{appName: appName}
}

// NotifyReconciliationComplete is emitted once the watcher's startup
// reconciliation pass finishes.
func (d *DesktopNotifier) NotifyReconciliationComplete(added, removed int) error {
	return beeep.Notify(d.appName, fmt.Sprintf("Reconciliation complete: %d added, %d removed", added, removed), "")
}

// NotifyIngestFailed surfaces a terminal ingestion failure for filename.
func (d *DesktopNotifier) NotifyIngestFailed(filename, reason string) error {
	return beeep.Alert(d.appName, fmt.Sprintf("Failed to ingest %s: %s", filename, reason), "")
}
