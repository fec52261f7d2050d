package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epa-data-etl/internal/adapter/remote"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

const annual2019 = `"State Code","County Code","Site Num","Parameter Code","POC","Year","Arithmetic Mean","Local Site Name"
"06","037","1103",44201,1,2019,0.041,"Los Angeles-N. Main Street"
"06","037","1103",88101,1,2019,9.52,"Los Angeles-N. Main Street"
"CC","040","0020",44201,1,2019,0.032,""
`

const annual2020 = `"State Code","County Code","Site Num","Parameter Code","POC","Year","Arithmetic Mean","Local Site Name"
"09","009","0027",44201,1,2020,0.038,"New Haven"
"09","009","0027",42602,1,2020,11.7,"New Haven"
"06","037","1103",44201,1,2020,0.040,"Los Angeles-N. Main Street"
`

// zipBytes returns a zip archive holding one CSV entry.
func zipBytes(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = io.WriteString(w, body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeZip(t *testing.T, path, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, zipBytes(t, name, body), 0o644))
}

func newTask(t *testing.T, dest string, urls []string, filter ...domain.ParameterCode) domain.DownloadTask {
	t.Helper()
	task, err := domain.NewDownloadTask(dest, urls, filter)
	require.NoError(t, err)
	return task
}

// --- fakes ---

type fakeStater struct {
	modified time.Time
	err      error
	calls    int
}

func (f *fakeStater) LastModified(_ context.Context, _ string) (time.Time, error) {
	f.calls++
	return f.modified, f.err
}

// countingSource serves local files and can fail selected locations.
type countingSource struct {
	opened []string
	fail   map[string]error
}

func (s *countingSource) Open(ctx context.Context, location string) (string, func(), error) {
	s.opened = append(s.opened, location)
	if err, ok := s.fail[location]; ok {
		return "", nil, err
	}
	return remote.LocalSource{}.Open(ctx, location)
}

type recordingPublisher struct {
	rows []domain.Record
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, rows []domain.Record) error {
	for _, r := range rows {
		p.rows = append(p.rows, r.Clone())
	}
	return p.err
}

type recordingUploader struct {
	paths []string
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, path string) error {
	u.paths = append(u.paths, path)
	return u.err
}

var errSourceDown = errors.New("source down")

// column returns the values of one column as strings.
func column(rows []domain.Record, name string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.String(name)
	}
	return out
}

// asMap flattens a record for go-cmp diffs.
func asMap(r domain.Record) map[string]any {
	out := make(map[string]any, r.Len())
	for _, c := range r.Columns() {
		out[c] = r.Value(c)
	}
	return out
}
