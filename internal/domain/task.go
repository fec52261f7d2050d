package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"
)

// SourceStater reports when a remote source last changed.
type SourceStater interface {
	LastModified(ctx context.Context, url string) (time.Time, error)
}

// DownloadTask is one output file and the ordered sources that feed it.
// Tasks are built by the planner and not modified afterwards.
type DownloadTask struct {
	Destination     string
	URLs            []string
	ParameterFilter []ParameterCode
}

// NewDownloadTask validates and returns a task.
func NewDownloadTask(destination string, urls []string, filter []ParameterCode) (DownloadTask, error) {
	if destination == "" {
		return DownloadTask{}, ConfigError("task destination is empty")
	}
	if len(urls) == 0 {
		return DownloadTask{}, ConfigError("task %s has no sources", destination)
	}
	return DownloadTask{
		Destination:     destination,
		URLs:            slices.Clone(urls),
		ParameterFilter: slices.Clone(filter),
	}, nil
}

// Accepts reports whether rows with the given parameter code belong in the
// output. A task without a filter accepts everything.
func (t DownloadTask) Accepts(code ParameterCode) bool {
	if len(t.ParameterFilter) == 0 {
		return true
	}
	return slices.Contains(t.ParameterFilter, code)
}

// Filtered reports whether the task restricts parameter codes.
func (t DownloadTask) Filtered() bool { return len(t.ParameterFilter) > 0 }

// IsUpToDate reports whether the destination exists and is newer than every
// source. Any failure to stat a source counts as stale.
func (t DownloadTask) IsUpToDate(ctx context.Context, stater SourceStater) bool {
	info, err := os.Stat(t.Destination)
	if err != nil || info.Size() == 0 {
		return false
	}
	for _, url := range t.URLs {
		modified, err := stater.LastModified(ctx, url)
		if err != nil || modified.IsZero() {
			return false
		}
		if !info.ModTime().After(modified) {
			return false
		}
	}
	return true
}

// Reset removes the destination if it exists.
func (t DownloadTask) Reset() error {
	if err := os.Remove(t.Destination); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reset %s: %w", t.Destination, err)
	}
	return nil
}

func (t DownloadTask) String() string {
	return fmt.Sprintf("%s <- %v", t.Destination, t.URLs)
}
