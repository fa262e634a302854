package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CheckConverter reports the ImageMagick binary conversions will execute.
//
// The pipeline invokes the configured command verbatim, so resolution here
// mirrors exec.Command: a name containing a path separator is checked
// directly, anything else is resolved from PATH. The resolved absolute path
// lands in status output so a stale PATH is visible at a glance.
func CheckConverter(converterCommand string) Status {
	result := Status{
		Name:        "ImageMagick",
		Description: "Converts admitted photos to JPEG",
	}

	binary := strings.TrimSpace(converterCommand)
	if binary == "" {
		binary = "magick"
	}
	result.Command = binary

	if strings.ContainsRune(binary, os.PathSeparator) {
		info, err := os.Stat(binary)
		if err != nil {
			result.Detail = fmt.Sprintf("binary %q not found", binary)
			return result
		}
		if !isExecutable(info) {
			result.Detail = fmt.Sprintf("%q is not executable", binary)
			return result
		}
		result.Available = true
		return result
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", binary)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
