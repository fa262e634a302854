package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"darkroom/internal/config"
	"darkroom/internal/deps"
)

// minFreeBytes is the free-space floor below which the disk check fails.
// Converted JPEGs are small, but a nearly-full filesystem also threatens the
// journal and log writes.
const minFreeBytes = 256 << 20

var statfs = realStatfs

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem behind path has room for converted
// output and journal writes.
func CheckDiskSpace(name, path string) Result {
	total, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < minFreeBytes {
		return Result{
			Name:   name,
			Detail: fmt.Sprintf("%s (%s free, below the %s floor)", path, formatBytes(int64(free)), formatBytes(minFreeBytes)),
		}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%s free of %s)", path, formatBytes(int64(free)), formatBytes(int64(total))),
	}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// the daemon and the CLI status command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.CheckConverter(cfg.ConvertBinary())}

	if cfg.Retire.Strategy == config.RetireStrategySystem {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{
			{
				Name:        "System trash",
				Command:     cfg.TrashBinary(),
				Description: "Moves retired originals to the desktop trash",
				Optional:    true,
			},
		})...)
	}

	return statuses
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
