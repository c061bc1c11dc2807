package workhours

import "context"

// SettingsSource fetches the current settings document from wherever the
// institution publishes it.
type SettingsSource interface {
	Fetch(ctx context.Context) (SettingsDocument, error)
}
