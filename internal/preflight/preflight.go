package preflight

import (
	"darkroom/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, root := range cfg.Watch.Roots {
		results = append(results, CheckDirectoryAccess("Watch root", root))
	}

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Daemon.DataDir))
	results = append(results, CheckDiskSpace("Data directory space", cfg.Daemon.DataDir))

	// The trash directory only matters under the trash-dir strategy; the
	// system strategy delegates placement to the desktop trash tool.
	if cfg.Retire.Strategy == config.RetireStrategyTrashDir {
		results = append(results, CheckDirectoryAccess("Trash directory", cfg.Retire.TrashDir))
	}

	return results
}
