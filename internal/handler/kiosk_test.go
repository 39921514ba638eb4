package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scoopstand/api/internal/handler"
	"github.com/scoopstand/api/internal/service"
	"github.com/scoopstand/api/internal/session"
	"github.com/scoopstand/api/internal/ws"
)

// --- Mock store ---

// flakySessionStore wraps a MemoryStore and fails Save on demand.
type flakySessionStore struct {
	*session.MemoryStore
	saveErr error
}

func (s *flakySessionStore) Save(ctx context.Context, id uuid.UUID, o service.Order) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, id, o)
}

// recordingFeed captures published receipt events.
type recordingFeed struct {
	rooms  []string
	events []ws.Event
}

func (f *recordingFeed) Broadcast(room string, event ws.Event) {
	f.rooms = append(f.rooms, room)
	f.events = append(f.events, event)
}

// --- Helpers ---

func setupKioskRouter(t *testing.T, store session.Store) *chi.Mux {
	t.Helper()
	return setupKioskRouterWithFeed(t, store, nil)
}

func setupKioskRouterWithFeed(t *testing.T, store session.Store, feed handler.ReceiptFeed) *chi.Mux {
	t.Helper()
	configurator, err := service.NewOrderConfigurator(service.DefaultCatalog())
	if err != nil {
		t.Fatalf("new configurator: %v", err)
	}
	h := handler.NewKioskHandler(configurator, store, feed)
	r := chi.NewRouter()
	r.Route("/kiosk", h.RegisterRoutes)
	return r
}

// createSession starts a session and returns its base path.
func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rr := doRequest(t, router, "POST", "/kiosk/sessions", nil)
	assertStatus(t, rr, http.StatusCreated)
	resp := decodeResponse(t, rr)
	return "/kiosk/sessions/" + resp["session_id"].(string)
}

func scoopFlavors(t *testing.T, resp map[string]interface{}) []interface{} {
	t.Helper()
	scoops := resp["scoops"].([]interface{})
	out := make([]interface{}, len(scoops))
	for i, s := range scoops {
		out[i] = s.(map[string]interface{})["flavor"]
	}
	return out
}

// --- Catalog ---

func TestKioskCatalog(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())

	rr := doRequest(t, router, "GET", "/kiosk/catalog", nil)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	containers := resp["containers"].([]interface{})
	if len(containers) != 4 {
		t.Fatalf("containers: got %d, want 4", len(containers))
	}
	quart := containers[3].(map[string]interface{})
	if quart["name"] != "Quart" || quart["max_scoops"] != float64(4) || quart["price"] != "13500" {
		t.Errorf("quart: got %v", quart)
	}
	if flavors := resp["flavors"].([]interface{}); len(flavors) != 10 {
		t.Errorf("flavors: got %d, want 10", len(flavors))
	}
	if modes := resp["service_modes"].([]interface{}); len(modes) != 2 || modes[0] != "DINE_IN" {
		t.Errorf("service modes: got %v", modes)
	}
	if methods := resp["payment_methods"].([]interface{}); len(methods) != 2 || methods[1] != "CASH" {
		t.Errorf("payment methods: got %v", methods)
	}
}

// --- Sessions ---

func TestKioskCreateSession_Defaults(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())

	rr := doRequest(t, router, "POST", "/kiosk/sessions", nil)
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if _, err := uuid.Parse(resp["session_id"].(string)); err != nil {
		t.Errorf("session_id: %v", err)
	}
	container := resp["container"].(map[string]interface{})
	if container["name"] != "Single Cup" {
		t.Errorf("container: got %v", container["name"])
	}
	if resp["scoop_count"] != float64(1) {
		t.Errorf("scoop_count: got %v", resp["scoop_count"])
	}
	if resp["price"] != "3500" || resp["price_display"] != "3,500원" {
		t.Errorf("price: got %v / %v", resp["price"], resp["price_display"])
	}
	if resp["complete"] != false {
		t.Errorf("complete: got %v, want false", resp["complete"])
	}
	if resp["info"] != "Single Cup selected: 1 scoop." {
		t.Errorf("info: got %v", resp["info"])
	}
}

func TestKioskGetSession_NotFound(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())

	rr := doRequest(t, router, "GET", "/kiosk/sessions/"+uuid.New().String(), nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestKioskDeleteSession(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	rr := doRequest(t, router, "DELETE", base, nil)
	assertStatus(t, rr, http.StatusNoContent)

	rr = doRequest(t, router, "GET", base, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

// --- Container ---

func TestKioskSelectContainer_ResetsFlavors(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	assertStatus(t, doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Quart"}), http.StatusOK)
	assertStatus(t, doRequest(t, router, "PUT", base+"/flavors", map[string]interface{}{"index": 0, "flavor": "Strawberry"}), http.StatusOK)

	rr := doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Double Cup"})
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["scoop_count"] != float64(2) {
		t.Errorf("scoop_count: got %v, want 2", resp["scoop_count"])
	}
	for i, f := range scoopFlavors(t, resp) {
		if f != nil {
			t.Errorf("scoop %d: expected cleared flavor, got %v", i, f)
		}
	}
	if resp["info"] != "Double Cup selected: up to 2 scoops." {
		t.Errorf("info: got %v", resp["info"])
	}
}

func TestKioskSelectContainer_Unknown(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	rr := doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Bucket"})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doRequest(t, router, "GET", base, nil)
	resp := decodeResponse(t, rr)
	if resp["container"].(map[string]interface{})["name"] != "Single Cup" {
		t.Error("failed selection must not change the stored order")
	}
}

func TestKioskSelectContainer_MissingName(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	rr := doRequest(t, router, "PUT", base+"/container", map[string]string{})
	assertStatus(t, rr, http.StatusBadRequest)
}

// --- Scoops ---

func TestKioskSetScoopCount(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)
	assertStatus(t, doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Pint"}), http.StatusOK)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"within bound", map[string]int{"count": 2}, http.StatusOK},
		{"zero", map[string]int{"count": 0}, http.StatusBadRequest},
		{"over capacity", map[string]int{"count": 4}, http.StatusBadRequest},
		{"missing", map[string]string{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "PUT", base+"/scoops", tt.body)
			assertStatus(t, rr, tt.status)
		})
	}

	resp := decodeResponse(t, doRequest(t, router, "GET", base, nil))
	if resp["scoop_count"] != float64(2) {
		t.Errorf("scoop_count: got %v, want 2", resp["scoop_count"])
	}
}

// --- Flavors ---

func TestKioskAssignFlavor(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)
	assertStatus(t, doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Double Cup"}), http.StatusOK)

	rr := doRequest(t, router, "PUT", base+"/flavors", map[string]interface{}{"index": 1, "flavor": "Mint Chocolate Chip"})
	assertStatus(t, rr, http.StatusOK)

	flavors := scoopFlavors(t, decodeResponse(t, rr))
	if flavors[0] != nil || flavors[1] != "Mint Chocolate Chip" {
		t.Errorf("flavors: got %v", flavors)
	}
}

func TestKioskAssignFlavor_Errors(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	tests := []struct {
		name string
		body interface{}
	}{
		{"index out of range", map[string]interface{}{"index": 1, "flavor": "Strawberry"}},
		{"negative index", map[string]interface{}{"index": -1, "flavor": "Strawberry"}},
		{"unknown flavor", map[string]interface{}{"index": 0, "flavor": "Pickle Ripple"}},
		{"missing index", map[string]interface{}{"flavor": "Strawberry"}},
		{"missing flavor", map[string]interface{}{"index": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "PUT", base+"/flavors", tt.body)
			assertStatus(t, rr, http.StatusBadRequest)
		})
	}
}

// --- Service mode / payment ---

func TestKioskServiceModeAndPayment(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	rr := doRequest(t, router, "PUT", base+"/service-mode", map[string]string{"mode": "TO_GO"})
	assertStatus(t, rr, http.StatusOK)
	if decodeResponse(t, rr)["service_mode"] != "TO_GO" {
		t.Error("expected TO_GO")
	}

	rr = doRequest(t, router, "PUT", base+"/payment-method", map[string]string{"method": "CASH"})
	assertStatus(t, rr, http.StatusOK)
	if decodeResponse(t, rr)["payment_method"] != "CASH" {
		t.Error("expected CASH")
	}

	assertStatus(t, doRequest(t, router, "PUT", base+"/service-mode", map[string]string{"mode": "DELIVERY"}), http.StatusBadRequest)
	assertStatus(t, doRequest(t, router, "PUT", base+"/payment-method", map[string]string{"method": "BITCOIN"}), http.StatusBadRequest)
}

// --- Price ---

func TestKioskPrice_IgnoresFlavorsAndPayment(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)
	assertStatus(t, doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Pint"}), http.StatusOK)

	before := decodeResponse(t, doRequest(t, router, "GET", base+"/price", nil))

	assertStatus(t, doRequest(t, router, "PUT", base+"/flavors", map[string]interface{}{"index": 0, "flavor": "Almond Bonbon"}), http.StatusOK)
	assertStatus(t, doRequest(t, router, "PUT", base+"/payment-method", map[string]string{"method": "CASH"}), http.StatusOK)

	after := decodeResponse(t, doRequest(t, router, "GET", base+"/price", nil))

	if before["price"] != "9500" || after["price"] != "9500" {
		t.Errorf("price: before=%v after=%v, want 9500", before["price"], after["price"])
	}
	if after["price_display"] != "9,500원" {
		t.Errorf("price_display: got %v", after["price_display"])
	}
}

// --- Submit ---

func TestKioskSubmit_Incomplete(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)
	assertStatus(t, doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Double Cup"}), http.StatusOK)
	assertStatus(t, doRequest(t, router, "PUT", base+"/flavors", map[string]interface{}{"index": 0, "flavor": "Strawberry"}), http.StatusOK)

	rr := doRequest(t, router, "POST", base+"/submit", nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestKioskSubmit_FullFlow(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	steps := []struct {
		path string
		body interface{}
	}{
		{"/service-mode", map[string]string{"mode": "TO_GO"}},
		{"/container", map[string]string{"name": "Quart"}},
		{"/scoops", map[string]int{"count": 3}},
		{"/flavors", map[string]interface{}{"index": 0, "flavor": "Mom Is An Alien"}},
		{"/flavors", map[string]interface{}{"index": 1, "flavor": "Shooting Star"}},
		{"/flavors", map[string]interface{}{"index": 2, "flavor": "Mom Is An Alien"}},
		{"/payment-method", map[string]string{"method": "CARD"}},
	}
	for _, s := range steps {
		assertStatus(t, doRequest(t, router, "PUT", base+s.path, s.body), http.StatusOK)
	}

	rr := doRequest(t, router, "POST", base+"/submit", nil)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["service_mode"] != "TO_GO" || resp["payment_method"] != "CARD" {
		t.Errorf("selection echo: got %v / %v", resp["service_mode"], resp["payment_method"])
	}
	if resp["scoop_count"] != float64(3) {
		t.Errorf("scoop_count: got %v", resp["scoop_count"])
	}
	scoops := resp["scoops"].([]interface{})
	if len(scoops) != 3 {
		t.Fatalf("scoops: got %d, want 3", len(scoops))
	}
	second := scoops[1].(map[string]interface{})
	if second["number"] != float64(2) || second["flavor"] != "Shooting Star" {
		t.Errorf("scoop 2: got %v", second)
	}
	if resp["price"] != "13500" || resp["price_display"] != "13,500원" {
		t.Errorf("price: got %v / %v", resp["price"], resp["price_display"])
	}
	if _, err := uuid.Parse(resp["id"].(string)); err != nil {
		t.Errorf("receipt id: %v", err)
	}
}

func TestKioskSubmit_PublishesReceipt(t *testing.T) {
	feed := &recordingFeed{}
	router := setupKioskRouterWithFeed(t, session.NewMemoryStore(), feed)
	base := createSession(t, router)

	// Incomplete orders are not published.
	assertStatus(t, doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Double Cup"}), http.StatusOK)
	assertStatus(t, doRequest(t, router, "POST", base+"/submit", nil), http.StatusBadRequest)
	if len(feed.events) != 0 {
		t.Fatalf("events after failed submit: got %d, want 0", len(feed.events))
	}

	assertStatus(t, doRequest(t, router, "PUT", base+"/flavors", map[string]interface{}{"index": 0, "flavor": "Strawberry"}), http.StatusOK)
	assertStatus(t, doRequest(t, router, "PUT", base+"/flavors", map[string]interface{}{"index": 1, "flavor": "Almond Bonbon"}), http.StatusOK)

	rr := doRequest(t, router, "POST", base+"/submit", nil)
	assertStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)

	if len(feed.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(feed.events))
	}
	if feed.rooms[0] != "DINE_IN" || feed.events[0].Type != ws.EventReceiptSubmitted {
		t.Errorf("event: room=%s type=%s", feed.rooms[0], feed.events[0].Type)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(feed.events[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["id"] != resp["id"] || payload["price"] != resp["price"] {
		t.Errorf("payload: got %v, want receipt %v", payload, resp)
	}
}

// --- Store failures ---

func TestKioskUpdate_SaveFailure(t *testing.T) {
	store := &flakySessionStore{MemoryStore: session.NewMemoryStore()}
	router := setupKioskRouter(t, store)
	base := createSession(t, router)

	store.saveErr = errors.New("redis timeout")
	rr := doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Pint"})
	assertStatus(t, rr, http.StatusInternalServerError)

	store.saveErr = session.ErrNotFound
	rr = doRequest(t, router, "PUT", base+"/container", map[string]string{"name": "Pint"})
	assertStatus(t, rr, http.StatusNotFound)
}

func TestKioskUpdate_InvalidBody(t *testing.T) {
	router := setupKioskRouter(t, session.NewMemoryStore())
	base := createSession(t, router)

	rr := doRequest(t, router, "PUT", base+"/container", "not an object")
	assertStatus(t, rr, http.StatusBadRequest)
}
