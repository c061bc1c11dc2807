package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsBattery reads the charge level from /sys/class/power_supply. Hosts
// without a battery report a full charge.
type SysfsBattery struct {
	root string
}

func NewSysfsBattery(root string) *SysfsBattery {
	if root == "" {
		root = "/sys/class/power_supply"
	}
	return &SysfsBattery{root: root}
}

// Level implements BatteryProvider.
func (b *SysfsBattery) Level(ctx context.Context) (float64, error) {
	matches, err := filepath.Glob(filepath.Join(b.root, "BAT*", "capacity"))
	if err != nil {
		return 1, fmt.Errorf("failed to list batteries: %w", err)
	}
	if len(matches) == 0 {
		return 1, nil
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return 1, fmt.Errorf("failed to read battery capacity: %w", err)
	}

	pct, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 1, fmt.Errorf("failed to parse battery capacity: %w", err)
	}

	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return float64(pct) / 100, nil
}
