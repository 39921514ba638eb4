// Package dataset loads per-country MBTI type ratios.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/scoopstand/api/internal/service"
)

// ExpectedCategories is the number of MBTI type columns in a complete dataset.
const ExpectedCategories = 16

// PreferredCountry is selected by default when the dataset contains it.
const PreferredCountry = "Korea, South"

// ErrCountryNotFound wraps ErrDataUnavailable: a missing country is missing
// data. Check it first when the two need different handling.
var (
	ErrDataUnavailable = errors.New("dataset unavailable")
	ErrCountryNotFound = fmt.Errorf("%w: country not found", ErrDataUnavailable)
)

// Source looks up the category ratios of a country.
// Satisfied by *CSVSource and *PostgresSource.
type Source interface {
	Countries(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, country string) ([]service.CategoryRow, error)
}

// DefaultCountry returns PreferredCountry when listed, otherwise the first entry.
func DefaultCountry(countries []string) string {
	if slices.Contains(countries, PreferredCountry) {
		return PreferredCountry
	}
	if len(countries) == 0 {
		return ""
	}
	return countries[0]
}

// table is an in-memory copy of the dataset.
type table struct {
	categories []string
	countries  []string // sorted
	ratios     map[string][]float64
}

func (t *table) lookup(country string) ([]service.CategoryRow, error) {
	values, ok := t.ratios[country]
	if !ok {
		return nil, ErrCountryNotFound
	}
	rows := make([]service.CategoryRow, len(t.categories))
	for i, cat := range t.categories {
		rows[i] = service.CategoryRow{Category: cat, Ratio: values[i]}
	}
	return rows, nil
}
