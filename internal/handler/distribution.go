package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scoopstand/api/internal/dataset"
	"github.com/scoopstand/api/internal/service"
)

// dataUnavailableMessage tells the operator how to fix a missing dataset.
const dataUnavailableMessage = "dataset unavailable: place countriesMBTI_16types.csv next to the server or seed the database"

// DistributionHandler serves the per-country MBTI distribution dashboard.
type DistributionHandler struct {
	source dataset.Source
	ranker *service.DistributionRanker
}

// NewDistributionHandler creates a new DistributionHandler.
func NewDistributionHandler(source dataset.Source, ranker *service.DistributionRanker) *DistributionHandler {
	return &DistributionHandler{source: source, ranker: ranker}
}

// RegisterRoutes registers dashboard endpoints on the given Chi router.
// Expected to be mounted at /mbti.
func (h *DistributionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/countries", h.Countries)
	r.Get("/distribution", h.Distribution)
}

// --- Response types ---

type countriesResponse struct {
	Countries []string `json:"countries"`
	Default   string   `json:"default"`
}

type chartBarResponse struct {
	Category  string  `json:"category"`
	Ratio     float64 `json:"ratio"`
	Color     string  `json:"color"`
	Highlight bool    `json:"highlight"`
}

type tableRowResponse struct {
	Rank     int     `json:"rank"`
	Category string  `json:"category"`
	Ratio    float64 `json:"ratio"`
}

type distributionResponse struct {
	Country string             `json:"country"`
	Title   string             `json:"title"`
	Top     chartBarResponse   `json:"top"`
	Bars    []chartBarResponse `json:"bars"`
	Table   []tableRowResponse `json:"table"`
}

func toChartBar(row service.ColoredRow) chartBarResponse {
	return chartBarResponse{
		Category:  row.Category,
		Ratio:     row.Ratio,
		Color:     row.Color,
		Highlight: row.Highlight,
	}
}

// --- Handlers ---

// Countries lists selectable countries and the default selection.
func (h *DistributionHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.source.Countries(r.Context())
	if err != nil {
		h.writeSourceError(w, "list countries", err)
		return
	}

	writeJSON(w, http.StatusOK, countriesResponse{
		Countries: countries,
		Default:   dataset.DefaultCountry(countries),
	})
}

// Distribution returns the colored bar chart data and the descending table
// for ?country=. Without a country the default selection is used.
func (h *DistributionHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		countries, err := h.source.Countries(r.Context())
		if err != nil {
			h.writeSourceError(w, "list countries", err)
			return
		}
		country = dataset.DefaultCountry(countries)
	}

	rows, err := h.source.Lookup(r.Context(), country)
	if err != nil {
		h.writeSourceError(w, "lookup country", err)
		return
	}

	assignment, err := h.ranker.Rank(rows)
	if err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no category data for country"})
			return
		}
		log.Printf("ERROR: rank distribution: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	bars := make([]chartBarResponse, len(assignment.Rows))
	for i, row := range assignment.Rows {
		bars[i] = toChartBar(row)
	}

	sorted := service.SortDescending(rows)
	table := make([]tableRowResponse, len(sorted))
	for i, row := range sorted {
		table[i] = tableRowResponse{Rank: i + 1, Category: row.Category, Ratio: row.Ratio}
	}

	writeJSON(w, http.StatusOK, distributionResponse{
		Country: country,
		Title:   country + " MBTI type ratios",
		Top:     toChartBar(assignment.Top()),
		Bars:    bars,
		Table:   table,
	})
}

// --- Helpers ---

func (h *DistributionHandler) writeSourceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, dataset.ErrCountryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "country not found"})
	case errors.Is(err, dataset.ErrDataUnavailable):
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": dataUnavailableMessage})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
