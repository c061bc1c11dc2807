package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/tidwall/jsonc"
)

type permissionFile struct {
	ForegroundLocation tracking.PermissionStatus `json:"foreground_location"`
	BackgroundLocation tracking.PermissionStatus `json:"background_location"`
	LocationServices   tracking.PermissionStatus `json:"location_services"`
}

// FilePermissions reads the host's location permission state from a JSONC
// file, letting an operator (or a provisioning tool) grant and revoke
// capabilities by editing it. A missing file means nothing was decided yet.
type FilePermissions struct {
	path string

	// AutoGrant makes Request grant every undetermined capability, standing
	// in for an operator accepting the consent dialog.
	AutoGrant bool

	mu  sync.Mutex
	now func() time.Time
}

func NewFilePermissions(path string, autoGrant bool) *FilePermissions {
	return &FilePermissions{path: path, AutoGrant: autoGrant, now: time.Now}
}

// Query implements PermissionProvider.
func (p *FilePermissions) Query(ctx context.Context) (tracking.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.read()
	if err != nil {
		return tracking.PermissionState{}, err
	}
	return p.state(f), nil
}

// Request implements PermissionProvider.
func (p *FilePermissions) Request(ctx context.Context) (tracking.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.read()
	if err != nil {
		return tracking.PermissionState{}, err
	}
	if !p.AutoGrant {
		return p.state(f), nil
	}

	grant := func(s *tracking.PermissionStatus) {
		if *s == tracking.PermissionUndetermined {
			*s = tracking.PermissionGranted
		}
	}
	grant(&f.ForegroundLocation)
	grant(&f.BackgroundLocation)
	grant(&f.LocationServices)

	if err := p.write(f); err != nil {
		return tracking.PermissionState{}, err
	}
	return p.state(f), nil
}

func (p *FilePermissions) read() (permissionFile, error) {
	f := permissionFile{
		ForegroundLocation: tracking.PermissionUndetermined,
		BackgroundLocation: tracking.PermissionUndetermined,
		LocationServices:   tracking.PermissionUndetermined,
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return f, fmt.Errorf("failed to read permission file: %w", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return f, fmt.Errorf("failed to parse permission file: %w", err)
	}
	return f, nil
}

func (p *FilePermissions) write(f permissionFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode permission file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create permission directory: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write permission file: %w", err)
	}
	return os.Rename(tmp, p.path)
}

func (p *FilePermissions) state(f permissionFile) tracking.PermissionState {
	normalize := func(s tracking.PermissionStatus) tracking.PermissionStatus {
		switch s {
		case tracking.PermissionGranted, tracking.PermissionDenied:
			return s
		}
		return tracking.PermissionUndetermined
	}
	return tracking.PermissionState{
		ForegroundLocation: normalize(f.ForegroundLocation),
		BackgroundLocation: normalize(f.BackgroundLocation),
		LocationServices:   normalize(f.LocationServices),
		CheckedAt:          p.now(),
	}
}
