package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/scoopstand/api/internal/service"
)

// CSVSource serves the dataset from a CSV file whose first column is the
// country name and whose remaining columns are category ratios.
// The file is read once, on first use, and kept for the life of the source.
type CSVSource struct {
	path string

	mu    sync.Mutex
	table *table
}

// NewCSVSource creates a CSVSource for the file at path. The file is not
// opened until the first lookup.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Countries returns every country in the file, sorted ascending.
func (s *CSVSource) Countries(ctx context.Context) ([]string, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.countries), nil
}

// Lookup returns the country's ratios in file column order.
func (s *CSVSource) Lookup(ctx context.Context, country string) ([]service.CategoryRow, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	return t.lookup(country)
}

// Categories returns the category column names in file order.
func (s *CSVSource) Categories() ([]string, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.categories), nil
}

// load parses the file on first call. A failed load is not cached, so a file
// uploaded after startup is picked up by the next request.
func (s *CSVSource) load() (*table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		return s.table, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDataUnavailable, s.path, err)
	}
	defer f.Close()

	t, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrDataUnavailable, s.path, err)
	}
	if len(t.categories) != ExpectedCategories {
		log.Printf("WARNING: %s has %d category columns, expected %d", s.path, len(t.categories), ExpectedCategories)
	}

	s.table = t
	return t, nil
}

// parseCSV reads the header row and every data row. Duplicate countries keep
// their first row.
func parseCSV(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a country column and at least one category, got %d columns", len(header))
	}

	categories := make([]string, len(header)-1)
	for i, h := range header[1:] {
		categories[i] = strings.TrimSpace(h)
	}

	t := &table{
		categories: categories,
		ratios:     make(map[string][]float64),
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		country := strings.TrimSpace(record[0])
		if country == "" {
			return nil, fmt.Errorf("line %d: country is required", line)
		}
		if _, dup := t.ratios[country]; dup {
			continue
		}

		values := make([]float64, len(categories))
		for i, raw := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: %s: invalid ratio %q", line, categories[i], raw)
			}
			values[i] = v
		}
		t.ratios[country] = values
		t.countries = append(t.countries, country)
	}

	if len(t.countries) == 0 {
		return nil, errors.New("no data rows")
	}
	slices.Sort(t.countries)
	return t, nil
}
