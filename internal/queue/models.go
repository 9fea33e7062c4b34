package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRetrying   Status = "retrying"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusRetrying,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// FileState describes the terminal state of one file within a job.
type FileState string

const (
	FileStateDone    FileState = "done"
	FileStateFailed  FileState = "failed"
	FileStateSkipped FileState = "skipped"
)

// FileOutcome records the per-file result persisted alongside a job.
type FileOutcome struct {
	Path     string    `json:"path"`
	State    FileState `json:"state"`
	Attempts int       `json:"attempts"`
	Output   string    `json:"output,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Job represents a folder-processing job persisted in SQLite.
type Job struct {
	ID              int64
	CorrelationID   string
	FolderPath      string
	Status          Status
	FilesJSON       string
	OutcomesJSON    string
	ErrorMessage    string
	RetryCount      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the job is claimed by a worker.
func (j Job) IsProcessing() bool {
	return j.Status == StatusProcessing
}

// IsTerminal reports whether the job has reached a final state.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Files decodes the immutable file snapshot captured at enqueue time.
func (j Job) Files() ([]string, error) {
	if strings.TrimSpace(j.FilesJSON) == "" {
		return nil, nil
	}
	var files []string
	if err := json.Unmarshal([]byte(j.FilesJSON), &files); err != nil {
		return nil, fmt.Errorf("decode job files: %w", err)
	}
	return files, nil
}

// SetFiles stores the file snapshot for the job.
func (j *Job) SetFiles(files []string) error {
	data, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encode job files: %w", err)
	}
	j.FilesJSON = string(data)
	return nil
}

// Outcomes decodes the per-file results recorded during processing.
func (j Job) Outcomes() ([]FileOutcome, error) {
	if strings.TrimSpace(j.OutcomesJSON) == "" {
		return nil, nil
	}
	var outcomes []FileOutcome
	if err := json.Unmarshal([]byte(j.OutcomesJSON), &outcomes); err != nil {
		return nil, fmt.Errorf("decode job outcomes: %w", err)
	}
	return outcomes, nil
}

// SetOutcomes stores per-file results on the job.
func (j *Job) SetOutcomes(outcomes []FileOutcome) error {
	data, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("encode job outcomes: %w", err)
	}
	j.OutcomesJSON = string(data)
	return nil
}

// SetProgress updates all three progress fields atomically.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}
