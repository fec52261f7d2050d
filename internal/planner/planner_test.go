package planner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		name  string
		years []int
		merge bool
		want  [][]int
	}{
		{"merged runs", []int{2015, 2016, 2017, 2019, 2021, 2022}, true, [][]int{{2015, 2016, 2017}, {2019}, {2021, 2022}}},
		{"unsorted with duplicates", []int{2017, 2015, 2016, 2016}, true, [][]int{{2015, 2016, 2017}}},
		{"no merge", []int{2016, 2015}, false, [][]int{{2015}, {2016}}},
		{"single", []int{2020}, true, [][]int{{2020}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segments(tt.years, tt.merge))
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "2019", Label([]int{2019}))
	assert.Equal(t, "2015-2017", Label([]int{2015, 2016, 2017}))
}

func TestPlan_Annual(t *testing.T) {
	tasks, err := Plan(Request{
		Aggregation: domain.AggregationAnnual,
		Years:       []int{2015, 2016, 2017, 2019},
		MergeYears:  true,
		Destination: "out",
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, filepath.Join("out", "annual_conc_by_monitor_2015-2017.csv.gz"), tasks[0].Destination)
	assert.Equal(t, []string{
		"https://aqs.epa.gov/aqsweb/airdata/annual_conc_by_monitor_2015.zip",
		"https://aqs.epa.gov/aqsweb/airdata/annual_conc_by_monitor_2016.zip",
		"https://aqs.epa.gov/aqsweb/airdata/annual_conc_by_monitor_2017.zip",
	}, tasks[0].URLs)
	assert.False(t, tasks[0].Filtered())

	assert.Equal(t, filepath.Join("out", "annual_conc_by_monitor_2019.csv.gz"), tasks[1].Destination)
}

func TestPlan_AnnualWithParameters(t *testing.T) {
	tasks, err := Plan(Request{
		Aggregation: domain.AggregationAnnual,
		Years:       []int{2019},
		Parameters:  []domain.ParameterCode{domain.ParameterPM25, domain.ParameterNO2, domain.ParameterPM25},
		Destination: "out",
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	assert.Equal(t, filepath.Join("out", "annual_conc_by_monitor_2019_42602_88101.csv.gz"), tasks[0].Destination)
	assert.Equal(t, []domain.ParameterCode{domain.ParameterNO2, domain.ParameterPM25}, tasks[0].ParameterFilter)
}

func TestPlan_Daily(t *testing.T) {
	tasks, err := Plan(Request{
		Aggregation: domain.AggregationDaily,
		Years:       []int{2020, 2019, 2022},
		Parameters:  []domain.ParameterCode{domain.ParameterPM25, domain.ParameterCode(81102)},
		MergeYears:  true,
		Destination: "d",
		BaseURL:     "http://localhost:8080/airdata",
	})
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	var dests []string
	for _, task := range tasks {
		dests = append(dests, filepath.Base(task.Destination))
		assert.Empty(t, task.ParameterFilter)
	}
	assert.Equal(t, []string{
		"daily_81102_2019-2020.csv.gz",
		"daily_PM25_2019-2020.csv.gz",
		"daily_81102_2022.csv.gz",
		"daily_PM25_2022.csv.gz",
	}, dests)
	assert.Equal(t, []string{
		"http://localhost:8080/airdata/daily_88101_2019.zip",
		"http://localhost:8080/airdata/daily_88101_2020.zip",
	}, tasks[1].URLs)
}

func TestPlan_ConfigurationErrors(t *testing.T) {
	_, err := Plan(Request{Aggregation: domain.AggregationDaily, Years: []int{2020}})
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = Plan(Request{Aggregation: domain.AggregationAnnual})
	require.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = Plan(Request{Aggregation: "hourly", Years: []int{2020}})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseYears(t *testing.T) {
	years, err := ParseYears("2015-2017, 2020")
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016, 2017, 2020}, years)

	_, err = ParseYears("2018-2015")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = ParseYears("last year")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseParameters(t *testing.T) {
	params, err := ParseParameters([]string{"pm25,42602", "ozone"})
	require.NoError(t, err)
	assert.Equal(t, []domain.ParameterCode{domain.ParameterPM25, domain.ParameterNO2, domain.ParameterOzone}, params)

	_, err = ParseParameters([]string{"pm99"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
