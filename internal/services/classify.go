package services

import "strings"

// Failure reasons recorded for conversion errors. The converter only hands
// back a diagnostic string, so classification works on its text.
const (
	ReasonPermission = "permission denied"
	ReasonToolExit   = "converter exited with an error"
	ReasonIO         = "i/o error"
)

var permissionMarkers = []string{
	"permission denied",
	"access is denied",
	"operation not permitted",
	"read-only file system",
}

var toolExitMarkers = []string{
	"exit status",
	"exit code",
	"signal:",
	"decode",
	"no decode delegate",
	"improper image header",
}

// ClassifyDiagnostic maps a converter diagnostic to one of the fixed failure
// reasons: permission problems, a tool-level decode/exit failure, or a
// generic I/O error for everything else.
func ClassifyDiagnostic(diagnostic string) string {
	text := strings.ToLower(diagnostic)
	for _, marker := range permissionMarkers {
		if strings.Contains(text, marker) {
			return ReasonPermission
		}
	}
	for _, marker := range toolExitMarkers {
		if strings.Contains(text, marker) {
			return ReasonToolExit
		}
	}
	return ReasonIO
}
