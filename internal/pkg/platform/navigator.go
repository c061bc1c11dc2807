package platform

import (
	"context"
	"log/slog"
	"strings"
)

// LogNavigator surfaces remediation requests in the agent log, for hosts
// without a screen to route to.
type LogNavigator struct{}

// ShowPermissionScreen implements Navigator.
func (LogNavigator) ShowPermissionScreen(ctx context.Context, missing []string) error {
	slog.Warn("Location permission required, grant access to resume tracking",
		"missing", strings.Join(missing, ","))
	return nil
}
