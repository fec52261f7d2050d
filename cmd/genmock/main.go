// Command genmock writes deterministic AirNow and AQS fixtures and can serve
// them over HTTP so epa can run end to end without network access.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -start 2023-01-01 -days 3 -years 2019-2020
//	go run ./cmd/genmock -out data/mock -serve :8089
//
// With the server running:
//
//	AIRNOW_URL=http://localhost:8089/aq/data/ epa airnow --start 2023-01-01 --end 2023-01-03 ...
//	epa aqs --years 2019 --base-url http://localhost:8089/aqs/
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/planner"
	"github.com/couchcryptid/epa-data-etl/internal/tabular"
)

// site is a monitoring location shared by both fixture families.
type site struct {
	aqsCode   string // 840 + state + county + site
	name      string
	agency    string
	latitude  float64
	longitude float64
}

var sites = []site{
	{aqsCode: "840090090027", name: "Criscuolo Park", agency: "Connecticut DEEP", latitude: 41.3015, longitude: -72.9029},
	{aqsCode: "840060371103", name: "Los Angeles - N. Main Street", agency: "South Coast AQMD", latitude: 34.0664, longitude: -118.2266},
	{aqsCode: "840360810124", name: "Queens College", agency: "New York DEC", latitude: 40.7361, longitude: -73.8215},
	{aqsCode: "840170313103", name: "Schiller Park", agency: "Illinois EPA", latitude: 41.9650, longitude: -87.8763},
	{aqsCode: "840482011039", name: "Houston Deer Park", agency: "Texas CEQ", latitude: 29.6700, longitude: -95.1285},
}

// pollutantFixture describes how observations of one pollutant look.
type pollutantFixture struct {
	parameter string
	unit      string
	low, high float64
	aqiScale  float64
}

var pollutantFixtures = map[domain.Pollutant]pollutantFixture{
	domain.PollutantPM25:  {parameter: "PM2.5", unit: "UG/M3", low: 3, high: 35, aqiScale: 3.2},
	domain.PollutantPM10:  {parameter: "PM10", unit: "UG/M3", low: 8, high: 80, aqiScale: 0.9},
	domain.PollutantOzone: {parameter: "OZONE", unit: "PPB", low: 15, high: 70, aqiScale: 1},
	domain.PollutantNO2:   {parameter: "NO2", unit: "PPB", low: 4, high: 45, aqiScale: 0.8},
	domain.PollutantCO:    {parameter: "CO", unit: "PPM", low: 0.1, high: 1.5, aqiScale: 12},
	domain.PollutantSO2:   {parameter: "SO2", unit: "PPB", low: 0.5, high: 8, aqiScale: 1.4},
}

var aqsParameters = []domain.ParameterCode{domain.ParameterOzone, domain.ParameterPM25, domain.ParameterNO2}

// observation mirrors one element of a verbose AirNow data response.
type observation struct {
	Latitude         float64 `json:"Latitude"`
	Longitude        float64 `json:"Longitude"`
	UTC              string  `json:"UTC"`
	Parameter        string  `json:"Parameter"`
	Unit             string  `json:"Unit"`
	Value            float64 `json:"Value"`
	RawConcentration float64 `json:"RawConcentration"`
	AQI              int     `json:"AQI"`
	Category         int     `json:"Category"`
	SiteName         string  `json:"SiteName"`
	AgencyName       string  `json:"AgencyName"`
	FullAQSCode      string  `json:"FullAQSCode"`
	IntlAQSCode      string  `json:"IntlAQSCode"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "fixture output directory")
	start := flag.String("start", "2023-01-01", "first AirNow day")
	days := flag.Int("days", 3, "number of AirNow days")
	years := flag.String("years", "2019-2020", "AQS annual years")
	seed := flag.Uint64("seed", 1, "random seed")
	serve := flag.String("serve", "", "serve fixtures from -out on this address instead of generating")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	if *serve != "" {
		log.Printf("serving fixtures from %s on %s", *out, *serve)
		srv := &http.Server{Addr: *serve, Handler: newHandler(*out), ReadHeaderTimeout: 10 * time.Second}
		return srv.ListenAndServe()
	}

	first, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	ys, err := planner.ParseYears(*years)
	if err != nil {
		return err
	}

	n, err := writeAirNow(*out, first, *days, *seed)
	if err != nil {
		return err
	}
	log.Printf("airnow: %d window files", n)

	for _, y := range ys {
		path, err := writeAQSAnnual(*out, y, *seed)
		if err != nil {
			return err
		}
		log.Printf("aqs: %s", path)
	}
	return nil
}

// airNowPath is where the response for one request window is stored.
func airNowPath(dir string, p domain.Pollutant, startdate string) string {
	return filepath.Join(dir, "airnow", p.String(), startdate+".json")
}

func writeAirNow(dir string, first time.Time, days int, seed uint64) (int, error) {
	files := 0
	for _, p := range domain.Pollutants {
		for d := range days {
			day := first.AddDate(0, 0, d)
			for _, w := range p.DayWindows() {
				obs := airNowWindow(p, day, w, seed)
				data, err := json.MarshalIndent(obs, "", "  ")
				if err != nil {
					return files, err
				}
				path := airNowPath(dir, p, day.Format(time.DateOnly)+w[0])
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return files, err
				}
				if err := os.WriteFile(path, data, 0o600); err != nil {
					return files, err
				}
				files++
			}
		}
	}
	return files, nil
}

// airNowWindow returns one observation per site and hour of the window.
func airNowWindow(p domain.Pollutant, day time.Time, window [2]string, seed uint64) []observation {
	fx := pollutantFixtures[p]
	var from, to int
	_, _ = fmt.Sscanf(window[0], "T%d", &from)
	_, _ = fmt.Sscanf(window[1], "T%d", &to)

	rng := rand.New(rand.NewPCG(seed, uint64(day.Unix())+uint64(from)))
	out := make([]observation, 0, len(sites)*(to-from+1))
	for hour := from; hour <= to; hour++ {
		ts := day.Add(time.Duration(hour) * time.Hour)
		for _, s := range sites {
			v := round(fx.low+rng.Float64()*(fx.high-fx.low), 1)
			aqi := int(math.Round(v * fx.aqiScale))
			out = append(out, observation{
				Latitude:         s.latitude,
				Longitude:        s.longitude,
				UTC:              ts.Format("2006-01-02T15:04"),
				Parameter:        fx.parameter,
				Unit:             fx.unit,
				Value:            v,
				RawConcentration: v,
				AQI:              aqi,
				Category:         category(aqi),
				SiteName:         s.name,
				AgencyName:       s.agency,
				FullAQSCode:      s.aqsCode,
				IntlAQSCode:      s.aqsCode,
			})
		}
	}
	return out
}

// writeAQSAnnual writes annual_conc_by_monitor_{year}.zip with one row per
// site and parameter.
func writeAQSAnnual(dir string, year int, seed uint64) (string, error) {
	columns := []string{
		"State Code", "County Code", "Site Num", "Parameter Code", "POC",
		"Latitude", "Longitude", "Parameter Name", "Year", "Arithmetic Mean", "Local Site Name",
	}
	rng := rand.New(rand.NewPCG(seed, uint64(year)))

	var csvBuf bytes.Buffer
	w := tabular.NewCSVWriter(&csvBuf)
	if err := w.WriteHeader(columns); err != nil {
		return "", err
	}
	for _, s := range sites {
		for _, p := range aqsParameters {
			rec := domain.RecordFromPairs(columns, []any{
				s.aqsCode[3:5], s.aqsCode[5:8], s.aqsCode[8:12], int64(p), int64(1),
				s.latitude, s.longitude, p.Label(), int64(year), round(rng.Float64()*40, 6), s.name,
			})
			if err := w.WriteRecord(rec, columns); err != nil {
				return "", err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("annual_conc_by_monitor_%d", year)
	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	entry, err := zw.Create(name + ".csv")
	if err != nil {
		return "", err
	}
	if _, err := entry.Write(csvBuf.Bytes()); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "aqs", name+".zip")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, zipBuf.Bytes(), 0o600)
}

// newHandler serves AirNow windows by their parameters and startdate query
// values, and AQS archives under /aqs/. Unknown windows are empty arrays.
func newHandler(dir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /aq/data/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p, err := domain.ParsePollutant(q.Get("parameters"))
		if err != nil || q.Get("API_KEY") == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"WebServiceError":[{"Message":"Invalid request"}]}`))
			return
		}
		data, err := os.ReadFile(airNowPath(dir, p, q.Get("startdate")))
		if err != nil {
			data = []byte("[]")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})
	mux.Handle("/aqs/", http.StripPrefix("/aqs/", http.FileServer(http.Dir(filepath.Join(dir, "aqs")))))
	return mux
}

func category(aqi int) int {
	switch {
	case aqi <= 50:
		return 1
	case aqi <= 100:
		return 2
	case aqi <= 150:
		return 3
	case aqi <= 200:
		return 4
	default:
		return 5
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
