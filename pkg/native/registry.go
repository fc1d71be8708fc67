package native

import (
	"context"
	"sort"
	"sync"
)

// Driver is a factory method for plugging in new backends.
type Driver func(ctx context.Context, cfg map[string]any) (Common, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register installs a backend driver.
func Register(name string, drv Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = drv
}

// Open instantiates a driver by name.
func Open(ctx context.Context, name string, cfg map[string]any) (Common, error) {
	driversMu.RLock()
	drv, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, ErrPlatformNotSupported
	}
	return drv(ctx, cfg)
}

// Drivers lists registered driver names.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
