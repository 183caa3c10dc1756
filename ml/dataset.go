package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Dataset is a CSV table held fully in memory. Cells are kept as text and parsed
// per column on demand, so non-numeric columns (ids, categories) can coexist with
// the numeric predictors.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

type loadOptions struct {
	encoding string
}

// LoadOption customizes LoadDataset.
type LoadOption func(*loadOptions)

// WithEncoding decodes the file from the named character set (WHATWG names such as
// "windows-1252" or "gbk"). UTF-8 is the default.
func WithEncoding(name string) LoadOption {
	return func(o *loadOptions) {
		o.encoding = name
	}
}

func LoadDataset(path string, opts ...LoadOption) (*Dataset, error) {
	options := loadOptions{encoding: "utf-8"}
	for _, opt := range opts {
		opt(&options)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer file.Close()

	decoder, err := lookupDecoder(options.encoding)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	ds, err := ReadDataset(transform.NewReader(file, decoder))
	if err != nil {
		var loadErr *DataLoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
			return nil, loadErr
		}
		return nil, &DataLoadError{Path: path, Err: err}
	}
	return ds, nil
}

// ReadDataset parses UTF-8 CSV content with a header row.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DataLoadError{Reason: "file is empty"}
	}
	if err != nil {
		return nil, &DataLoadError{Reason: "malformed header", Err: err}
	}

	ds := &Dataset{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &DataLoadError{Reason: fmt.Sprintf("header column %d is blank", i+1)}
		}
		if _, dup := ds.index[name]; dup {
			return nil, &DataLoadError{Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		ds.columns[i] = name
		ds.index[name] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Reason: "malformed row", Err: err}
		}
		ds.rows = append(ds.rows, record)
	}

	if len(ds.rows) == 0 {
		return nil, &DataLoadError{Reason: "dataset has zero rows"}
	}
	return ds, nil
}

func lookupDecoder(name string) (transform.Transformer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return unicode.BOMOverride(encoding.Nop.NewDecoder()), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

func (d *Dataset) Len() int {
	return len(d.rows)
}

func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column parses every cell of the named column as a finite float64.
func (d *Dataset) Column(name string) ([]float64, error) {
	idx, ok := d.index[name]
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	values := make([]float64, len(d.rows))
	for i, row := range d.rows {
		v, err := d.cell(row, idx, i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// cell parses column idx of data row i. Header is line 1, so data row i lives
// on line i+2.
func (d *Dataset) cell(row []string, idx, i int) (float64, *DataLoadError) {
	name := d.columns[idx]
	if idx >= len(row) {
		return 0, &DataLoadError{Column: name, Row: i + 2, Reason: "missing cell"}
	}
	text := strings.TrimSpace(row[idx])
	if text == "" {
		return 0, &DataLoadError{Column: name, Row: i + 2, Reason: "empty cell"}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &DataLoadError{Column: name, Row: i + 2, Reason: "not numeric", Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &DataLoadError{Column: name, Row: i + 2, Reason: "not a finite number"}
	}
	return v, nil
}

// Records projects the default feature and target columns into typed rows.
func (d *Dataset) Records() ([]Record, error) {
	names := append(DefaultFeatures(), DefaultTarget)
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	records := make([]Record, d.Len())
	for i := range records {
		records[i] = Record{
			Input: DailyInput{
				ScreenTimeHours:    cols[0][i],
				WorkScreenHours:    cols[1][i],
				LeisureScreenHours: cols[2][i],
				SleepHours:         cols[3][i],
				SleepQuality:       cols[4][i],
				StressLevel:        cols[5][i],
				Productivity:       cols[6][i],
			},
			WellnessIndex: cols[7][i],
		}
	}
	return records, nil
}

// ColumnSummary describes one numeric column.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary computes descriptive statistics for the given columns, or for the
// default features and target when columns is empty.
func (d *Dataset) Summary(columns ...string) ([]ColumnSummary, error) {
	if len(columns) == 0 {
		columns = append(DefaultFeatures(), DefaultTarget)
	}
	summaries := make([]ColumnSummary, 0, len(columns))
	for _, name := range columns {
		values, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			std = 0
		}
		summaries = append(summaries, ColumnSummary{
			Column: name,
			Count:  len(values),
			Mean:   mean,
			StdDev: std,
			Min:    floats.Min(values),
			Max:    floats.Max(values),
		})
	}
	return summaries, nil
}
