package ipc

// PingRequest probes daemon liveness.
type PingRequest struct{}

// PingResponse reports daemon liveness.
type PingResponse struct {
	Alive bool `json:"alive"`
	PID   int  `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a labeled status row with severity for rendering.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// StatusResponse represents daemon and engine status information. The check
// and summary sections are filled client-side from the raw fields.
type StatusResponse struct {
	Running            bool               `json:"running"`
	Paused             bool               `json:"paused"`
	PID                int                `json:"pid"`
	RunID              string             `json:"run_id"`
	Roots              []string           `json:"roots"`
	Recursive          bool               `json:"recursive"`
	Policy             string             `json:"policy"`
	Quality            int                `json:"quality"`
	RescanIntervalSecs int                `json:"rescan_interval_seconds"`
	Workers            int                `json:"workers"`
	HotplugMonitoring  bool               `json:"hotplug_monitoring"`
	LockPath           string             `json:"lock_path"`
	JournalPath        string             `json:"journal_path"`
	OutcomeStats       map[string]int     `json:"outcome_stats"`
	Dependencies       []DependencyStatus `json:"dependencies"`
	SystemChecks       []StatusLine       `json:"system_checks,omitempty"`
	WatchRoots         []StatusLine       `json:"watch_roots,omitempty"`
	DependencySummary  DependencySummary  `json:"dependency_summary,omitempty"`
}

// OutcomeRecord is the wire form of a conversion outcome.
type OutcomeRecord struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Result    string `json:"result"`
	Reason    string `json:"reason"`
	RunID     string `json:"run_id,omitempty"`
}

// RecentOutcomesRequest fetches the in-memory outcome ring.
type RecentOutcomesRequest struct{}

// RecentOutcomesResponse contains ring entries, newest first.
type RecentOutcomesResponse struct {
	Outcomes []OutcomeRecord `json:"outcomes"`
}

// HistoryRequest fetches persisted outcomes from the journal.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains journal entries, newest first.
type HistoryResponse struct {
	Outcomes []OutcomeRecord `json:"outcomes"`
}

// PauseRequest suspends watching.
type PauseRequest struct{}

// PauseResponse indicates whether watching was paused.
type PauseResponse struct {
	Paused  bool   `json:"paused"`
	Message string `json:"message"`
}

// ResumeRequest restarts watching.
type ResumeRequest struct{}

// ResumeResponse indicates whether watching resumed.
type ResumeResponse struct {
	Resumed bool   `json:"resumed"`
	Message string `json:"message"`
}

// ReloadRequest re-reads the configuration file.
type ReloadRequest struct{}

// ReloadResponse indicates whether the reload succeeded.
type ReloadResponse struct {
	Reloaded bool   `json:"reloaded"`
	Message  string `json:"message"`
}

// RescanRequest kicks an immediate sweep of all watch roots.
type RescanRequest struct{}

// RescanResponse acknowledges the rescan request.
type RescanResponse struct {
	Triggered bool `json:"triggered"`
}

// StopRequest stops the engine and releases the daemon lock.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// JournalHealthRequest fetches detailed journal diagnostics.
type JournalHealthRequest struct{}

// JournalHealthResponse reports journal health information.
type JournalHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	TotalOutcomes    int    `json:"total_outcomes"`
	IntegrityCheck   bool   `json:"integrity_check"`
	Error            string `json:"error"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
