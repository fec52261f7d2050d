package pipeline

import (
	"fmt"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

// RowTransformer applies the per-row AQS rules: the parameter filter, then
// the Monitor and Record keys. Record numbers come from a counter scoped to
// one output file.
type RowTransformer struct {
	task    domain.DownloadTask
	counter *domain.RecordCounter
}

// NewRowTransformer returns a transformer for the rows of task.
func NewRowTransformer(task domain.DownloadTask, counter *domain.RecordCounter) *RowTransformer {
	return &RowTransformer{task: task, counter: counter}
}

// Apply adds Monitor and Record to row in place. It reports false, without
// consuming a record number, when the task's parameter filter rejects the
// row.
func (t *RowTransformer) Apply(row *domain.Record) (bool, error) {
	if t.task.Filtered() {
		code, err := row.Int(domain.ColumnParameterCode)
		if err != nil {
			return false, fmt.Errorf("parameter filter: %w", err)
		}
		if !t.task.Accepts(domain.ParameterCode(code)) {
			return false, nil
		}
	}
	monitor, err := domain.AQSMonitorKey(*row)
	if err != nil {
		return false, err
	}
	row.Set(domain.ColumnMonitor, monitor)
	if err := domain.AssignRecordKey(row, t.counter); err != nil {
		return false, err
	}
	return true, nil
}
