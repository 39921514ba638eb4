package service

import (
	"errors"
	"math"
	"slices"
)

var (
	ErrEmptyInput     = errors.New("no category rows to rank")
	ErrInvalidPalette = errors.New("palette and highlight color are required")
)

// HighlightColor marks the top category.
const HighlightColor = "#FF4136"

// flatRange replaces a zero value range so a flat distribution normalizes to 0.
const flatRange = 1e-9

// BluesPalette is the sequential light-to-dark blue scale used for the
// non-top categories.
var BluesPalette = []string{
	"rgb(247,251,255)",
	"rgb(222,235,247)",
	"rgb(198,219,239)",
	"rgb(158,202,225)",
	"rgb(107,174,214)",
	"rgb(66,146,198)",
	"rgb(33,113,181)",
	"rgb(8,81,156)",
	"rgb(8,48,107)",
}

// CategoryRow is one category's share of a country's distribution.
type CategoryRow struct {
	Category string  `json:"category"`
	Ratio    float64 `json:"ratio"`
}

// ColoredRow is a CategoryRow with its chart color.
type ColoredRow struct {
	CategoryRow
	Color     string `json:"color"`
	Highlight bool   `json:"highlight"`
}

// ColorAssignment holds a color for every input row, in input order.
type ColorAssignment struct {
	MaxIndex int          `json:"max_index"`
	Rows     []ColoredRow `json:"rows"`
}

// Top returns the highlighted row.
func (a *ColorAssignment) Top() ColoredRow {
	return a.Rows[a.MaxIndex]
}

// DistributionRanker colors category rows for a bar chart.
type DistributionRanker struct {
	palette   []string
	highlight string
}

// NewDistributionRanker builds a ranker over an ordered palette.
func NewDistributionRanker(palette []string, highlight string) (*DistributionRanker, error) {
	if len(palette) == 0 || highlight == "" {
		return nil, ErrInvalidPalette
	}
	return &DistributionRanker{palette: slices.Clone(palette), highlight: highlight}, nil
}

// Rank highlights the row with the largest ratio (the earliest one on ties)
// and maps every other row onto the palette by min-max normalization.
func (r *DistributionRanker) Rank(rows []CategoryRow) (*ColorAssignment, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	maxIdx := 0
	minVal, maxVal := rows[0].Ratio, rows[0].Ratio
	for i, row := range rows[1:] {
		if row.Ratio > maxVal {
			maxVal = row.Ratio
			maxIdx = i + 1
		}
		if row.Ratio < minVal {
			minVal = row.Ratio
		}
	}

	valueRange := maxVal - minVal
	if valueRange == 0 {
		valueRange = flatRange
	}

	out := make([]ColoredRow, len(rows))
	for i, row := range rows {
		if i == maxIdx {
			out[i] = ColoredRow{CategoryRow: row, Color: r.highlight, Highlight: true}
			continue
		}
		frac := (row.Ratio - minVal) / valueRange
		out[i] = ColoredRow{CategoryRow: row, Color: r.palette[r.paletteIndex(frac)]}
	}

	return &ColorAssignment{MaxIndex: maxIdx, Rows: out}, nil
}

func (r *DistributionRanker) paletteIndex(frac float64) int {
	idx := int(math.Floor(frac * float64(len(r.palette)-1)))
	return max(0, min(idx, len(r.palette)-1))
}

// SortDescending returns a copy of rows ordered by ratio, largest first.
// Rows with equal ratios keep their input order.
func SortDescending(rows []CategoryRow) []CategoryRow {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b CategoryRow) int {
		switch {
		case a.Ratio > b.Ratio:
			return -1
		case a.Ratio < b.Ratio:
			return 1
		}
		return 0
	})
	return sorted
}
