package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scoopstand/api/internal/enum"
	"github.com/scoopstand/api/internal/middleware"
	"github.com/scoopstand/api/internal/service"
	"github.com/scoopstand/api/internal/session"
	"github.com/scoopstand/api/internal/ws"
)

// ReceiptFeed is the subset of ws.Hub the kiosk publishes receipts to.
type ReceiptFeed interface {
	Broadcast(room string, event ws.Event)
}

// KioskHandler serves the step-by-step ice-cream order form.
type KioskHandler struct {
	configurator *service.OrderConfigurator
	sessions     session.Store
	feed         ReceiptFeed
}

// NewKioskHandler creates a new KioskHandler. feed may be nil.
func NewKioskHandler(configurator *service.OrderConfigurator, sessions session.Store, feed ReceiptFeed) *KioskHandler {
	return &KioskHandler{configurator: configurator, sessions: sessions, feed: feed}
}

// RegisterRoutes registers kiosk endpoints on the given Chi router.
// Expected to be mounted at /kiosk.
func (h *KioskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog", h.Catalog)
	r.Post("/sessions", h.CreateSession)

	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Use(middleware.LoadSession(h.sessions))

		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Put("/service-mode", h.SetServiceMode)
		r.Put("/container", h.SelectContainer)
		r.Put("/scoops", h.SetScoopCount)
		r.Put("/flavors", h.AssignFlavor)
		r.Put("/payment-method", h.SetPaymentMethod)
		r.Get("/price", h.Price)
		r.Post("/submit", h.Submit)
	})
}

// --- Request / Response types ---

type selectContainerRequest struct {
	Name string `json:"name"`
}

type setScoopCountRequest struct {
	Count *int `json:"count"`
}

type assignFlavorRequest struct {
	Index  *int   `json:"index"`
	Flavor string `json:"flavor"`
}

type setServiceModeRequest struct {
	Mode string `json:"mode"`
}

type setPaymentMethodRequest struct {
	Method string `json:"method"`
}

type containerResponse struct {
	Name      string `json:"name"`
	MaxScoops int    `json:"max_scoops"`
	Price     string `json:"price"`
}

type catalogResponse struct {
	Containers     []containerResponse `json:"containers"`
	Flavors        []string            `json:"flavors"`
	ServiceModes   []string            `json:"service_modes"`
	PaymentMethods []string            `json:"payment_methods"`
}

type scoopSlotResponse struct {
	Index  int     `json:"index"`
	Number int     `json:"number"`
	Flavor *string `json:"flavor"`
}

type orderResponse struct {
	SessionID     uuid.UUID           `json:"session_id"`
	ServiceMode   string              `json:"service_mode"`
	Container     containerResponse   `json:"container"`
	ScoopCount    int                 `json:"scoop_count"`
	Scoops        []scoopSlotResponse `json:"scoops"`
	PaymentMethod string              `json:"payment_method"`
	Price         string              `json:"price"`
	PriceDisplay  string              `json:"price_display"`
	Info          string              `json:"info"`
	Complete      bool                `json:"complete"`
}

type priceResponse struct {
	Price        string `json:"price"`
	PriceDisplay string `json:"price_display"`
}

type receiptScoopResponse struct {
	Number int    `json:"number"`
	Flavor string `json:"flavor"`
}

type receiptResponse struct {
	ID            uuid.UUID              `json:"id"`
	ServiceMode   string                 `json:"service_mode"`
	Container     containerResponse      `json:"container"`
	ScoopCount    int                    `json:"scoop_count"`
	Scoops        []receiptScoopResponse `json:"scoops"`
	PaymentMethod string                 `json:"payment_method"`
	Price         string                 `json:"price"`
	PriceDisplay  string                 `json:"price_display"`
	SubmittedAt   time.Time              `json:"submitted_at"`
}

func toContainerResponse(c service.Container) containerResponse {
	return containerResponse{
		Name:      c.Name,
		MaxScoops: c.MaxScoops,
		Price:     c.Price.StringFixed(0),
	}
}

func toOrderResponse(id uuid.UUID, o service.Order) orderResponse {
	scoops := make([]scoopSlotResponse, len(o.Flavors))
	for i, f := range o.Flavors {
		scoops[i] = scoopSlotResponse{Index: i, Number: i + 1}
		if f != "" {
			flavor := f
			scoops[i].Flavor = &flavor
		}
	}

	price := service.ComputePrice(o)
	return orderResponse{
		SessionID:     id,
		ServiceMode:   o.ServiceMode,
		Container:     toContainerResponse(o.Container),
		ScoopCount:    o.ScoopCount,
		Scoops:        scoops,
		PaymentMethod: o.PaymentMethod,
		Price:         price.StringFixed(0),
		PriceDisplay:  service.FormatWon(price),
		Info:          containerInfo(o.Container),
		Complete:      o.AssignedFlavors() == o.ScoopCount && len(o.Flavors) == o.ScoopCount,
	}
}

func toReceiptResponse(r *service.Receipt) receiptResponse {
	scoops := make([]receiptScoopResponse, len(r.Scoops))
	for i, s := range r.Scoops {
		scoops[i] = receiptScoopResponse{Number: s.Number, Flavor: s.Flavor}
	}
	return receiptResponse{
		ID:            r.ID,
		ServiceMode:   r.ServiceMode,
		Container:     toContainerResponse(r.Container),
		ScoopCount:    r.ScoopCount,
		Scoops:        scoops,
		PaymentMethod: r.PaymentMethod,
		Price:         r.Price.StringFixed(0),
		PriceDisplay:  r.PriceDisplay,
		SubmittedAt:   r.SubmittedAt,
	}
}

func containerInfo(c service.Container) string {
	if c.MaxScoops == 1 {
		return fmt.Sprintf("%s selected: 1 scoop.", c.Name)
	}
	return fmt.Sprintf("%s selected: up to %d scoops.", c.Name, c.MaxScoops)
}

// --- Handlers ---

// Catalog returns the menu and the allowed selections.
func (h *KioskHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	containers := h.configurator.Containers()
	resp := catalogResponse{
		Containers:     make([]containerResponse, len(containers)),
		Flavors:        h.configurator.Flavors(),
		ServiceModes:   enum.ServiceModes,
		PaymentMethods: enum.PaymentMethods,
	}
	for i, c := range containers {
		resp.Containers[i] = toContainerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSession starts a new order with the default selections.
func (h *KioskHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	order := h.configurator.NewOrder()

	id, err := h.sessions.Create(r.Context(), order)
	if err != nil {
		log.Printf("ERROR: create session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(id, order))
}

// GetSession returns the session's current order.
func (h *KioskHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, toOrderResponse(s.ID, s.Order))
}

// DeleteSession abandons the session.
func (h *KioskHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())

	if err := h.sessions.Delete(r.Context(), s.ID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		log.Printf("ERROR: delete session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetServiceMode handles PUT /sessions/{sid}/service-mode.
func (h *KioskHandler) SetServiceMode(w http.ResponseWriter, r *http.Request) {
	var req setServiceModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.update(w, r, func(o *service.Order) error {
		return h.configurator.SetServiceMode(o, req.Mode)
	})
}

// SelectContainer handles PUT /sessions/{sid}/container.
// Changing the container resets the scoop count and clears all flavors.
func (h *KioskHandler) SelectContainer(w http.ResponseWriter, r *http.Request) {
	var req selectContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	h.update(w, r, func(o *service.Order) error {
		_, err := h.configurator.SelectContainer(o, req.Name)
		return err
	})
}

// SetScoopCount handles PUT /sessions/{sid}/scoops.
func (h *KioskHandler) SetScoopCount(w http.ResponseWriter, r *http.Request) {
	var req setScoopCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Count == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "count is required"})
		return
	}

	h.update(w, r, func(o *service.Order) error {
		_, err := h.configurator.SetScoopCount(o, *req.Count)
		return err
	})
}

// AssignFlavor handles PUT /sessions/{sid}/flavors. Index is 0-based.
func (h *KioskHandler) AssignFlavor(w http.ResponseWriter, r *http.Request) {
	var req assignFlavorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Index == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index is required"})
		return
	}
	if req.Flavor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "flavor is required"})
		return
	}

	h.update(w, r, func(o *service.Order) error {
		return h.configurator.AssignFlavor(o, *req.Index, req.Flavor)
	})
}

// SetPaymentMethod handles PUT /sessions/{sid}/payment-method.
func (h *KioskHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req setPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.update(w, r, func(o *service.Order) error {
		return h.configurator.SetPaymentMethod(o, req.Method)
	})
}

// Price returns the current final price of the session's order.
func (h *KioskHandler) Price(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	price := service.ComputePrice(s.Order)
	writeJSON(w, http.StatusOK, priceResponse{
		Price:        price.StringFixed(0),
		PriceDisplay: service.FormatWon(price),
	})
}

// Submit validates the order and returns its receipt. The session stays
// open so the customer can still review it.
func (h *KioskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())

	receipt, err := h.configurator.SubmitOrder(s.Order)
	if err != nil {
		if isKioskValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: submit order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	log.Printf("order %s submitted: %s, %d scoops, %s", receipt.ID, receipt.Container.Name, receipt.ScoopCount, receipt.PriceDisplay)
	resp := toReceiptResponse(receipt)
	h.publish(receipt.ServiceMode, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *KioskHandler) publish(mode string, resp receiptResponse) {
	if h.feed == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("WARNING: marshal receipt event: %v", err)
		return
	}
	h.feed.Broadcast(mode, ws.Event{Type: ws.EventReceiptSubmitted, Payload: payload})
}

// --- Helpers ---

// update applies fn to the session's order and persists the result.
// The stored order is left untouched when fn fails.
func (h *KioskHandler) update(w http.ResponseWriter, r *http.Request, fn func(o *service.Order) error) {
	s := middleware.SessionFromContext(r.Context())
	order := s.Order

	if err := fn(&order); err != nil {
		if isKioskValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: update session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.sessions.Save(r.Context(), s.ID, order); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		log.Printf("ERROR: save session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(s.ID, order))
}

// isKioskValidationError checks if the error is a selection mistake
// that should result in 400 Bad Request.
func isKioskValidationError(err error) bool {
	return errors.Is(err, service.ErrUnknownContainer) ||
		errors.Is(err, service.ErrInvalidScoopCount) ||
		errors.Is(err, service.ErrUnknownFlavor) ||
		errors.Is(err, service.ErrIndexOutOfRange) ||
		errors.Is(err, service.ErrIncompleteSelection) ||
		errors.Is(err, service.ErrInvalidServiceMode) ||
		errors.Is(err, service.ErrInvalidPaymentMethod)
}
