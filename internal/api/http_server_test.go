package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rentmarket/internal/availability"
	"rentmarket/internal/config"
	"rentmarket/internal/database"
	"rentmarket/internal/events"
	"rentmarket/internal/inventory"
	"rentmarket/internal/models"
	"rentmarket/internal/records"
	"rentmarket/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *database.DB
	svc     *service.ReservationService
	server  *HTTPServer
	product *models.Product
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	notifier := events.NewNotifier(&logger)
	svc := service.NewReservationService(
		db,
		availability.NewCalculator(db),
		inventory.NewLedger(db, &logger),
		records.NewFactory(db),
		notifier,
		&logger,
		service.Options{},
	)

	product := &models.Product{
		ID:         uuid.NewString(),
		OwnerID:    "owner-1",
		Name:       "Pressure Washer",
		TotalUnits: 5,
		DailyRate:  100,
		Published:  true,
	}
	require.NoError(t, db.CreateProduct(context.Background(), product))

	return &testEnv{
		db:      db,
		svc:     svc,
		server:  NewHTTPServer(cfg, svc, nil, &logger),
		product: product,
	}
}

func openConfig() config.APIConfig {
	return config.APIConfig{HTTP: config.APIHTTPConfig{Port: 0}}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func providerHeaders() map[string]string {
	return map[string]string{headerActorID: "owner-1", headerActorRole: models.RoleProvider}
}

func createBody(productID string) createReservationRequest {
	return createReservationRequest{
		Kind:        models.KindRental,
		ProductID:   productID,
		RequesterID: "renter-1",
		Start:       "2026-03-01",
		End:         "2026-03-05",
		Quantity:    2,
	}
}

func TestCreateReservationEndpoint(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Equal(t, float64(800), res.TotalCost)
	assert.NotEmpty(t, res.ID)
}

func TestCreateReservationBadRequests(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{"bogus": true}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := createBody(env.product.ID)
	body.Start = "not-a-date"
	rec = env.do(t, http.MethodPost, "/api/v1/reservations", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = createBody("missing-product")
	rec = env.do(t, http.MethodPost, "/api/v1/reservations", body, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body = createBody(env.product.ID)
	body.Quantity = 50
	rec = env.do(t, http.MethodPost, "/api/v1/reservations", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_inventory")
}

func TestGetAndTransitionEndpoints(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	rec = env.do(t, http.MethodGet, "/api/v1/reservations/"+res.ID, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/reservations/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// actor headers are mandatory for transitions
	rec = env.do(t, http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition",
		transitionRequest{Target: models.StatusApproved}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition",
		transitionRequest{Target: models.StatusApproved}, providerHeaders())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.StatusApproved, res.Status)

	// renter may not approve
	rec = env.do(t, http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition",
		transitionRequest{Target: models.StatusActive},
		map[string]string{headerActorID: "renter-1", headerActorRole: models.RoleRenter})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// invalid edge maps to conflict
	rec = env.do(t, http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition",
		transitionRequest{Target: models.StatusReturned}, providerHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")
}

func TestTimelineEndpoint(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	rec = env.do(t, http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition",
		transitionRequest{Target: models.StatusApproved}, providerHeaders())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/reservations/"+res.ID+"/timeline", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Timeline []models.StatusChange `json:"timeline"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Timeline, 2)
	assert.Equal(t, models.StatusPending, payload.Timeline[0].Status)
	assert.Equal(t, models.StatusApproved, payload.Timeline[1].Status)
}

func TestAvailabilityEndpoint(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	path := fmt.Sprintf("/api/v1/availability/%s?start=2026-03-02&end=2026-03-04", env.product.ID)
	rec = env.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Available int64 `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, int64(3), payload.Available)

	rec = env.do(t, http.MethodGet, "/api/v1/availability/"+env.product.ID, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/availability/missing?start=2026-03-02&end=2026-03-04", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductsEndpoint(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Products, 1)
	assert.Equal(t, env.product.ID, payload.Products[0].ID)
}

func TestHealthEndpointSkipsAuth(t *testing.T) {
	cfg := openConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys:      []config.APIClientKey{{Key: "secret", Name: "tester"}},
	}
	env := newTestEnv(t, cfg)

	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	cfg := openConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "read-only", Name: "reader", Permissions: []string{permReadAvailability, permReadProducts}},
			{Key: "full", Name: "writer"},
		},
	}
	env := newTestEnv(t, cfg)

	rec := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthenticated")

	rec = env.do(t, http.MethodGet, "/api/v1/products", nil, map[string]string{"x-api-key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/products", nil, map[string]string{"x-api-key": "read-only"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// read-only key cannot create reservations
	rec = env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID),
		map[string]string{"x-api-key": "read-only"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")

	// key with no permissions list is allow-all
	rec = env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID),
		map[string]string{"x-api-key": "full"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := openConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 2}
	env := newTestEnv(t, cfg)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, openConfig())

	rec := env.do(t, http.MethodPost, "/api/v1/reservations", createBody(env.product.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/reservations/"+res.ID+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot", strings.TrimSpace(line))

	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data: "))

	var frame events.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &frame))
	assert.Equal(t, res.ID, frame.ReservationID)

	// a transition shows up as the next frame
	_, err = env.svc.RequestTransition(context.Background(), res.ID, models.StatusApproved,
		models.Actor{ID: "owner-1", Role: models.RoleProvider})
	require.NoError(t, err)

	line, err = reader.ReadString('\n')
	for err == nil && strings.TrimSpace(line) == "" {
		line, err = reader.ReadString('\n')
	}
	require.NoError(t, err)
	assert.Equal(t, "event: status_changed", strings.TrimSpace(line))
}
