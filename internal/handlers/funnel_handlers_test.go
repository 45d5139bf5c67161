package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garagehub/funnel-api/internal/catalog"
	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/services"
	"github.com/garagehub/funnel-api/internal/sessionstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider lets a test dictate OTP provider outcomes
type scriptedProvider struct {
	sendErr   error
	verifyErr error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Send(ctx context.Context, phone string) (string, error) {
	if p.sendErr != nil {
		return "", p.sendErr
	}
	return "scripted-handle", nil
}

func (p *scriptedProvider) Verify(ctx context.Context, handle, code string) error {
	return p.verifyErr
}

type testAPI struct {
	router   *gin.Engine
	provider *scriptedProvider
	received chan models.SubmitRequest
}

// newTestAPI wires the full handler stack against httptest backends for the
// catalog and the booking endpoint
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	requireRedis(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/car/all-brands", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.CarBrand{
			{Brand: "Honda", Models: []models.CarModel{
				{Name: "City", ImageURL: "https://cdn.test/city.png", FuelTypes: []string{"Petrol", "Diesel"}},
			}},
		})
	})
	mux.HandleFunc("/car/fuel-icons", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.FuelTypeIcon{
			{Type: "Petrol", URL: "https://cdn.test/petrol.svg"},
		})
	})

	received := make(chan models.SubmitRequest, 4)
	mux.HandleFunc("/car/submit-request", func(w http.ResponseWriter, r *http.Request) {
		var req models.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			received <- req
		}
		w.WriteHeader(http.StatusOK)
	})

	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	prevCatalog := config.AppConfig.CatalogBaseURL
	prevSubmit := config.AppConfig.SubmitURL
	config.AppConfig.CatalogBaseURL = backend.URL
	config.AppConfig.SubmitURL = backend.URL + "/car/submit-request"
	t.Cleanup(func() {
		config.AppConfig.CatalogBaseURL = prevCatalog
		config.AppConfig.SubmitURL = prevSubmit
	})

	catalogClient := catalog.NewClient()
	require.NoError(t, catalogClient.Refresh(context.Background()))
	t.Cleanup(func() { catalogClient.Refresh(context.Background()) })

	provider := &scriptedProvider{}
	store := sessionstore.NewStore()
	funnelService := services.NewFunnelService(catalogClient, logging.Logger)
	otpService := services.NewOTPService(provider, logging.Logger)
	submitService := services.NewSubmitService(store, logging.Logger)

	funnelHandlers := NewFunnelHandlers(
		logging.Logger, funnelService, otpService, submitService, store, catalogClient)
	otpHandlers := NewOTPHandlers(logging.Logger, otpService)

	router := gin.New()
	v1 := router.Group("/v1")
	{
		v1.GET("/health", HealthCheck)
		v1.POST("/funnel", funnelHandlers.CreateSession)
		v1.GET("/funnel/:sid", funnelHandlers.GetState)
		v1.POST("/funnel/:sid/picker", funnelHandlers.OpenPicker)
		v1.POST("/funnel/:sid/brand", funnelHandlers.SelectBrand)
		v1.POST("/funnel/:sid/model", funnelHandlers.SelectModel)
		v1.POST("/funnel/:sid/fuel", funnelHandlers.SelectFuel)
		v1.POST("/funnel/:sid/year", funnelHandlers.SelectYear)
		v1.POST("/funnel/:sid/back", funnelHandlers.Back)
		v1.PUT("/funnel/:sid/search", funnelHandlers.SetSearch)
		v1.POST("/funnel/:sid/submit", funnelHandlers.Submit)
		v1.GET("/funnel/:sid/selection", funnelHandlers.GetSelection)
		v1.PUT("/funnel/:sid/cart", funnelHandlers.PutCart)
		v1.GET("/funnel/:sid/cart", funnelHandlers.GetCart)
		v1.POST("/funnel/:sid/otp/send", otpHandlers.SendOTP)
		v1.POST("/funnel/:sid/otp/verify", otpHandlers.VerifyOTP)
		v1.GET("/funnel/:sid/otp", otpHandlers.GetOTPStatus)
	}

	return &testAPI{router: router, provider: provider, received: received}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createSession(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/v1/funnel", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var session models.FunnelSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)

	t.Cleanup(func() {
		ctx := context.Background()
		config.Redis.Del(ctx,
			"funnel_session:"+session.ID,
			"otp_session:"+session.ID,
			"otp_cooldown:"+session.ID,
			"session:"+session.ID+":car_selection",
			"session:"+session.ID+":cart",
		)
	})
	return session.ID
}

func (a *testAPI) getState(t *testing.T, sid string) models.FunnelStateResponse {
	t.Helper()
	w := a.do(t, http.MethodGet, "/v1/funnel/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state models.FunnelStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

// completeWizard walks the whole selection over HTTP
func (a *testAPI) completeWizard(t *testing.T, sid string) {
	t.Helper()
	year := fmt.Sprintf("%d", time.Now().Year())

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/v1/funnel/"+sid+"/picker", nil).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/v1/funnel/"+sid+"/brand", models.SelectBrandRequest{Brand: "Honda"}).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/v1/funnel/"+sid+"/model", models.SelectModelRequest{Model: "City"}).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/v1/funnel/"+sid+"/fuel", models.SelectFuelRequest{Fuel: "Petrol"}).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/v1/funnel/"+sid+"/year", models.SelectYearRequest{Year: year}).Code)
}

func TestCreateSession_ReturnsFormView(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	state := api.getState(t, sid)
	assert.Equal(t, models.ViewForm, state.View)
	assert.False(t, state.Complete)
}

func TestGetState_UnknownSession(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/v1/funnel/unknown-session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizardWalk_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	api.completeWizard(t, sid)

	state := api.getState(t, sid)
	assert.Equal(t, models.ViewForm, state.View)
	assert.Equal(t, "Honda", state.Selection.Brand)
	assert.Equal(t, "City", state.Selection.Model)
	assert.Equal(t, "Petrol", state.Selection.Fuel)
	assert.NotEmpty(t, state.Selection.Year)
	// Selection alone is not enough; the phone must verify first
	assert.False(t, state.Complete)
}

func TestSelectBrand_WrongViewRejected(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/brand", models.SelectBrandRequest{Brand: "Honda"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectBrand_UnknownBrand(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/picker", nil).Code)
	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/brand", models.SelectBrandRequest{Brand: "Yugo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOTPFlow_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/send", models.OTPSendRequest{Phone: "9876543210"})
	require.Equal(t, http.StatusOK, w.Code)

	var status models.OTPStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Sent)
	assert.Greater(t, status.CooldownSeconds, 0)

	// Immediate resend hits the cooldown
	w = api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/send", models.OTPSendRequest{Phone: "9876543210"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/verify", models.OTPVerifyRequest{Code: "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Verified)
}

func TestSendOTP_InvalidPhone(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/send", models.OTPSendRequest{Phone: "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTP_WithoutSend(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/verify", models.OTPVerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmit_RequiresVerifiedPhone(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	api.completeWizard(t, sid)

	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, api.received)
}

func TestSubmit_FullFunnel(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	api.completeWizard(t, sid)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/send", models.OTPSendRequest{Phone: "9876543210"}).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/otp/verify", models.OTPVerifyRequest{Code: "123456"}).Code)

	state := api.getState(t, sid)
	assert.True(t, state.Complete)

	w := api.do(t, http.MethodPost, "/v1/funnel/"+sid+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case req := <-api.received:
		assert.Equal(t, "Honda", req.Brand)
		assert.Equal(t, "9876543210", req.Phone)
	case <-time.After(5 * time.Second):
		t.Fatal("booking request never reached the backend")
	}

	// The hand-off record is readable afterwards
	w = api.do(t, http.MethodGet, "/v1/funnel/"+sid+"/selection", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var record models.CarSelectionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "Honda", record.Brand)
	assert.Equal(t, "Petrol", record.FuelType)
	assert.Equal(t, "https://cdn.test/city.png", record.Image)
}

func TestGetSelection_BeforeSubmit(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	w := api.do(t, http.MethodGet, "/v1/funnel/"+sid+"/selection", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_Roundtrip(t *testing.T) {
	api := newTestAPI(t)
	sid := api.createSession(t)

	cart := models.CartRecord{
		Items: []models.CartItem{{Name: "Periodic Service", Price: 4999, Quantity: 1}},
		Total: 4999,
	}
	w := api.do(t, http.MethodPut, "/v1/funnel/"+sid+"/cart", cart)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/v1/funnel/"+sid+"/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.CartRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, cart, got)
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}
