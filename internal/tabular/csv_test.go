package tabular

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

const annualSample = `"State Code","County Code","Site Num","Parameter Code","Year","Arithmetic Mean","Local Site Name"
"01","073","0023",88101,2019,9.8125,"North Birmingham, ""NB"""
"06", "037", "1103",44201,2019,,"Los Angeles"
`

func TestCSVReader_TypesByQuoting(t *testing.T) {
	r := NewCSVReader(strings.NewReader(annualSample))

	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"State Code", "County Code", "Site Num", "Parameter Code", "Year", "Arithmetic Mean", "Local Site Name"}, header)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "01", first.Value("State Code"))
	assert.Equal(t, 88101.0, first.Value("Parameter Code"))
	assert.Equal(t, 2019.0, first.Value("Year"))
	assert.Equal(t, `North Birmingham, "NB"`, first.Value("Local Site Name"))

	second := rows[1]
	assert.Equal(t, "037", second.Value("County Code"), "space after delimiter is skipped")
	assert.Nil(t, second.Value("Arithmetic Mean"))
	assert.Equal(t, header, second.Columns())
}

func TestCSVReader_MultilineAndCRLF(t *testing.T) {
	in := "\"a\",\"b\"\r\n\"line1\nline2\",1\r\n\r\n\"x\",2"
	rows, err := NewCSVReader(strings.NewReader(in)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "line1\nline2", rows[0].Value("a"))
	assert.Equal(t, 2.0, rows[1].Value("b"))
}

func TestCSVReader_FieldCountMismatch(t *testing.T) {
	r := NewCSVReader(strings.NewReader("\"a\",\"b\"\n1\n"))
	_, err := r.Read()
	require.ErrorIs(t, err, ErrFieldCount)
}

func TestCSVReader_EmptyInput(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader("")).Header()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	r := NewCSVReader(strings.NewReader("\"a\"\n"))
	_, err = r.Read()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestCSVWriter_RoundTripKeepsQuoting(t *testing.T) {
	rows, err := NewCSVReader(strings.NewReader(annualSample)).ReadAll()
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	cols := rows[0].Columns()
	require.NoError(t, w.WriteHeader(cols))
	for _, r := range rows {
		require.NoError(t, w.WriteRecord(r, cols))
	}
	require.NoError(t, w.Flush())

	want := `"State Code","County Code","Site Num","Parameter Code","Year","Arithmetic Mean","Local Site Name"
"01","073","0023",88101,2019,9.8125,"North Birmingham, ""NB"""
"06","037","1103",44201,2019,,"Los Angeles"
`
	assert.Equal(t, want, buf.String())
}

func TestCSVWriter_MissingColumnsAreEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	rec := domain.RecordFromPairs([]string{"a"}, []any{int64(1)})
	require.NoError(t, w.WriteRecord(rec, []string{"a", "b", "c"}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "1,,\n", buf.String())
}
