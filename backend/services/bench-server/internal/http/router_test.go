package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cellbench/backend/libs/clock"
	"cellbench/backend/services/bench-server/internal/auth"
	"cellbench/backend/services/bench-server/internal/http/handlers"
	"cellbench/backend/services/bench-server/internal/http/middleware"
	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
	"cellbench/backend/services/bench-server/internal/service"
)

type routerUsers struct {
	seq   int64
	users map[string]*models.User
}

func newRouterUsers() *routerUsers {
	return &routerUsers{users: make(map[string]*models.User)}
}

func (r *routerUsers) Create(ctx context.Context, user *models.User) error {
	r.seq++
	user.ID = r.seq
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.Username] = &stored
	return nil
}

func (r *routerUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := *user
	return &u, nil
}

func intPtr(v int) *int { return &v }

func benchPack() *models.BatteryConfig {
	return &models.BatteryConfig{
		FormatVersion:             2,
		BatteryType:               models.BatteryNiCd,
		NominalCapacityMAH:        1700,
		CellCount:                 5,
		NominalVoltageMV:          6000,
		ChargeVoltageLimitMV:      8900,
		StandardChargeCurrentMA:   350,
		StandardChargeDurationMin: 300,
		CapTestDischargeCurrentMA: 5000,
		CapTestEndVoltageMV:       5000,
		CapTestMaxDurationMin:     60,
		CapTestPassMinCapacityPct: 85,
		MaxChargeTempC:            45.0,
		MaxDischargeTempC:         55.0,
		AbsoluteMinVoltageMV:      4500,
		PartNumber:                "3301-31",
	}
}

type routerFixture struct {
	ts     *httptest.Server
	tokens *auth.TokenService
}

// newTestRouter stands up the full route table over real services with
// stub power and in-memory users. Stations: 1 ready with a pack docked,
// 2 and 3 empty.
func newTestRouter(t *testing.T) *routerFixture {
	t.Helper()
	logger := zap.NewNop()

	stations := service.NewStationManager(3, service.NopPower{}, service.NopEvents{}, logger)
	voltage := 6400
	stations.Apply(models.StationStatus{
		StationID:     1,
		State:         models.StateReady,
		VoltageMV:     &voltage,
		EEPROMPresent: true,
		BatteryConfig: benchPack(),
	})

	runner := service.NewTaskRunner(stations, service.NopPower{}, nil, nil, nil, nil,
		service.NopEvents{}, clock.New(), logger)
	t.Cleanup(runner.Close)

	tokens := auth.NewTokenService("router-test-secret", time.Hour)
	users := newRouterUsers()
	authSvc := auth.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, logger)
	if _, err := authSvc.Signup(context.Background(), "angelo", "bench123", ""); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	deps := RouterDeps{
		Health:       handlers.NewHealthHandler(nil, nil),
		StationCount: handlers.NewStationCountHandler(3),
		WSLive: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		Auth:       handlers.NewAuthHandlers(authSvc, logger),
		Stations:   handlers.NewStationsHandlers(stations, runner, logger),
		Customers:  handlers.NewCustomersHandlers(nil, logger),
		WorkOrders: handlers.NewWorkOrdersHandlers(nil, logger),
		Tools:      handlers.NewToolsHandlers(nil, logger),
		Sessions:   handlers.NewSessionsHandlers(nil, nil, logger),
		JobTasks:   handlers.NewJobTasksHandlers(nil, runner, logger),
		Recipes:    handlers.NewRecipesHandlers(nil, logger),
		Reports:    handlers.NewReportsHandlers(nil, nil, nil, nil, nil, nil, nil, stations, nil, t.TempDir(), logger),
		Logger:     logger,
	}

	ts := httptest.NewServer(NewRouter(deps, middleware.RequireAuth(tokens)))
	t.Cleanup(ts.Close)

	return &routerFixture{ts: ts, tokens: tokens}
}

func (fx *routerFixture) token(t *testing.T, role string) string {
	t.Helper()
	token, err := fx.tokens.GenerateToken(1, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func TestRouterHealthAndStationCount(t *testing.T) {
	fx := newTestRouter(t)

	var health map[string]string
	if status := doJSON(t, fx.ts, http.MethodGet, "/healthz", "", nil, &health); status != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", status)
	}
	if health["status"] != "ok" {
		t.Fatalf("expected ok health status, got %q", health["status"])
	}

	var count map[string]int
	if status := doJSON(t, fx.ts, http.MethodGet, "/api/config/stations", "", nil, &count); status != http.StatusOK {
		t.Fatalf("expected 200 from station count, got %d", status)
	}
	if count["station_count"] != 3 {
		t.Fatalf("expected 3 stations, got %d", count["station_count"])
	}
}

func TestRouterStationsListAndGet(t *testing.T) {
	fx := newTestRouter(t)

	var list []models.StationStatus
	if status := doJSON(t, fx.ts, http.MethodGet, "/api/stations", "", nil, &list); status != http.StatusOK {
		t.Fatalf("expected 200 from stations list, got %d", status)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(list))
	}
	if list[0].StationID != 1 || list[0].State != models.StateReady {
		t.Fatalf("expected station 1 ready first, got %+v", list[0])
	}

	var st models.StationStatus
	if status := doJSON(t, fx.ts, http.MethodGet, "/api/stations/1", "", nil, &st); status != http.StatusOK {
		t.Fatalf("expected 200 from station get, got %d", status)
	}
	if st.BatteryConfig == nil || st.BatteryConfig.PartNumber != "3301-31" {
		t.Fatalf("expected docked pack on station 1, got %+v", st.BatteryConfig)
	}

	if status := doJSON(t, fx.ts, http.MethodGet, "/api/stations/abc", "", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", status)
	}
	if status := doJSON(t, fx.ts, http.MethodGet, "/api/stations/99", "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown station, got %d", status)
	}
}

func TestRouterControlRequiresToken(t *testing.T) {
	fx := newTestRouter(t)

	cmd := models.ManualControlCommand{
		StationID: 1,
		Command:   models.CommandCharge,
		VoltageMV: intPtr(8900),
		CurrentMA: intPtr(350),
	}
	if status := doJSON(t, fx.ts, http.MethodPost, "/api/stations/control", "", cmd, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status := doJSON(t, fx.ts, http.MethodPost, "/api/stations/control", "not-a-token", cmd, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", status)
	}
}

func TestRouterLoginThenControl(t *testing.T) {
	fx := newTestRouter(t)

	status := doJSON(t, fx.ts, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "angelo", "password": "wrong"}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}

	var login struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
		Role      string `json:"role"`
	}
	status = doJSON(t, fx.ts, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "angelo", "password": "bench123"}, &login)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d", status)
	}
	if login.Token == "" || login.TokenType != "Bearer" || login.Role != "technician" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	over := models.ManualControlCommand{
		StationID: 1,
		Command:   models.CommandCharge,
		VoltageMV: intPtr(9600),
		CurrentMA: intPtr(350),
	}
	if status := doJSON(t, fx.ts, http.MethodPost, "/api/stations/control", login.Token, over, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for voltage above the pack limit, got %d", status)
	}

	empty := models.ManualControlCommand{
		StationID: 2,
		Command:   models.CommandCharge,
		VoltageMV: intPtr(8900),
		CurrentMA: intPtr(350),
	}
	if status := doJSON(t, fx.ts, http.MethodPost, "/api/stations/control", login.Token, empty, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 for empty station, got %d", status)
	}

	unknown := models.ManualControlCommand{
		StationID: 99,
		Command:   models.CommandCharge,
		VoltageMV: intPtr(8900),
		CurrentMA: intPtr(350),
	}
	if status := doJSON(t, fx.ts, http.MethodPost, "/api/stations/control", login.Token, unknown, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown station, got %d", status)
	}

	var controlResp map[string]string
	charge := models.ManualControlCommand{
		StationID: 1,
		Command:   models.CommandCharge,
		VoltageMV: intPtr(8900),
		CurrentMA: intPtr(350),
	}
	status = doJSON(t, fx.ts, http.MethodPost, "/api/stations/control", login.Token, charge, &controlResp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from control, got %d", status)
	}
	if controlResp["message"] != "Charging at 350mA, limit 8900mV" {
		t.Fatalf("unexpected control message %q", controlResp["message"])
	}

	// No automated run is active, so stop falls through to manual power-off.
	var stopResp map[string]string
	status = doJSON(t, fx.ts, http.MethodPost, "/api/stations/1/stop", login.Token, nil, &stopResp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from stop, got %d", status)
	}
	if stopResp["message"] != "stopped" {
		t.Fatalf("unexpected stop message %q", stopResp["message"])
	}

	var st models.StationStatus
	if status := doJSON(t, fx.ts, http.MethodGet, "/api/stations/1", "", nil, &st); status != http.StatusOK {
		t.Fatalf("expected 200 from station get, got %d", status)
	}
	if st.State != models.StateReady {
		t.Fatalf("expected station 1 back to ready after stop, got %s", st.State)
	}
}

func TestRouterSubmitUnknownTaskConflicts(t *testing.T) {
	fx := newTestRouter(t)

	status := doJSON(t, fx.ts, http.MethodPost, "/api/job-tasks/42/submit", fx.token(t, "technician"),
		models.ManualResult{StepResult: "pass"}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for a task nobody waits on, got %d", status)
	}
}

func TestRouterSignupNeedsAdmin(t *testing.T) {
	fx := newTestRouter(t)

	body := map[string]string{"username": "newtech", "password": "secret123"}
	status := doJSON(t, fx.ts, http.MethodPost, "/api/auth/signup", fx.token(t, "technician"), body, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for technician signup, got %d", status)
	}

	var created models.User
	status = doJSON(t, fx.ts, http.MethodPost, "/api/auth/signup", fx.token(t, "admin"), body, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from admin signup, got %d", status)
	}
	if created.Username != "newtech" || created.Role != "technician" {
		t.Fatalf("unexpected created user: %+v", created)
	}
}

func TestRouterReportDownloadMissing(t *testing.T) {
	fx := newTestRouter(t)

	if status := doJSON(t, fx.ts, http.MethodGet, "/api/reports/7/download", "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for a report never generated, got %d", status)
	}
}
