//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"gym-access-go/internal/config"
	"gym-access-go/internal/db"
	membershipdomain "gym-access-go/internal/domain/membership"
	reportsdomain "gym-access-go/internal/domain/reports"
	"gym-access-go/internal/metrics"
	membershiprepo "gym-access-go/internal/repository/membership"
	reportsrepo "gym-access-go/internal/repository/reports"
	"gym-access-go/internal/transport/httpserver"
	"gym-access-go/internal/transport/httpserver/handler"
	"gym-access-go/pkg/logger"
)

const adminToken = "e2e-admin"

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping e2e tests")
	}

	log := logger.Discard()
	cfg := config.Config{
		AdminToken: adminToken,
		DB:         config.DBConfig{Driver: config.DriverPostgres, DSN: dsn},
		Kiosk:      config.KioskConfig{RatePerSecond: 1000, Burst: 1000},
	}

	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}

	if err := db.Migrate(dbConn, config.DriverPostgres, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := cleanDB(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}

	m := metrics.New()
	members := membershipdomain.NewServiceWithOptions(membershiprepo.NewSQL(dbConn), log, membershipdomain.Options{
		MaxRetries:   10,
		RetryInitial: 5 * time.Millisecond,
		Location:     time.UTC,
		Recorder:     m,
	})
	if err := members.SeedCatalog(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	reports := reportsdomain.NewService(reportsrepo.NewSQL(dbConn), log, time.UTC)

	ping := func(ctx context.Context) error { return db.Ping(ctx, dbConn) }
	router := httpserver.NewRouter(cfg, handler.New(members, reports, ping, log), m, log)
	server := httptest.NewServer(router)

	return &testEnv{server: server, db: dbConn}
}

func (e *testEnv) Close() {
	e.server.Close()
	_ = db.Close(e.db)
}

func cleanDB(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		"TRUNCATE TABLE access_events, members RESTART IDENTITY CASCADE",
	).Error
}

func requestJSON(t *testing.T, client *http.Client, method, url, token string, payload interface{}) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	return resp, respBody
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type memberResponse struct {
	ID              int64  `json:"id"`
	DNI             string `json:"dni"`
	PlanName        string `json:"plan_name"`
	RemainingVisits int    `json:"remaining_visits"`
	Active          bool   `json:"active"`
}

type checkInResponse struct {
	Outcome string `json:"outcome"`
}

func decodeBody(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("decode %s: %v", string(body), err)
	}
}

func TestE2EHealthAndAuth(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := env.server.Client()

	resp, _ := requestJSON(t, client, http.MethodGet, env.server.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	resp, body := requestJSON(t, client, http.MethodGet, env.server.URL+"/api/members", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("members without token = %d", resp.StatusCode)
	}
	var envelope errorEnvelope
	decodeBody(t, body, &envelope)
	if envelope.Error.Code != "invalid_token" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestE2EMembershipFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := env.server.Client()
	base := env.server.URL

	resp, body := requestJSON(t, client, http.MethodPost, base+"/api/members", adminToken, map[string]interface{}{
		"first_name": "Juan", "last_name": "Pérez", "dni": "111", "plan_name": "Boxeo", "visits": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", resp.StatusCode, body)
	}
	var member memberResponse
	decodeBody(t, body, &member)

	for _, want := range []string{"granted", "denied_no_visits"} {
		resp, body = requestJSON(t, client, http.MethodPost, base+"/api/checkins", "", map[string]string{"dni": "111"})
		var result checkInResponse
		decodeBody(t, body, &result)
		if resp.StatusCode != http.StatusOK || result.Outcome != want {
			t.Fatalf("check-in status=%d outcome=%q want %q", resp.StatusCode, result.Outcome, want)
		}
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/api/members", adminToken, map[string]interface{}{
		"first_name": "Juan", "last_name": "Pérez", "dni": "111",
	})
	var envelope errorEnvelope
	decodeBody(t, body, &envelope)
	if resp.StatusCode != http.StatusConflict || envelope.Error.Code != "duplicate_active_dni" {
		t.Fatalf("duplicate register status=%d code=%q", resp.StatusCode, envelope.Error.Code)
	}

	resp, _ = requestJSON(t, client, http.MethodDelete, fmt.Sprintf("%s/api/members/%d", base, member.ID), adminToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/api/members/reactivate", adminToken, map[string]interface{}{
		"first_name": "Juan", "last_name": "Pérez", "dni": "111", "plan_name": "Libre",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reactivate status = %d body=%s", resp.StatusCode, body)
	}
	var revived memberResponse
	decodeBody(t, body, &revived)
	if revived.ID != member.ID || revived.RemainingVisits != 30 || !revived.Active {
		t.Fatalf("unexpected reactivated member: %+v", revived)
	}
}

func TestE2EConcurrentCheckIns(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := env.server.Client()
	base := env.server.URL

	resp, body := requestJSON(t, client, http.MethodPost, base+"/api/members", adminToken, map[string]interface{}{
		"first_name": "Ana", "last_name": "Gómez", "dni": "777", "visits": 5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", resp.StatusCode, body)
	}

	const attempts = 20
	var (
		mu      sync.Mutex
		granted int
		wg      sync.WaitGroup
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, body := requestJSON(t, client, http.MethodPost, base+"/api/checkins", "", map[string]string{"dni": "777"})
			if resp.StatusCode != http.StatusOK {
				t.Errorf("check-in status = %d body=%s", resp.StatusCode, body)
				return
			}
			var result checkInResponse
			if err := json.Unmarshal(body, &result); err != nil {
				t.Errorf("decode: %v", err)
				return
			}
			if result.Outcome == "granted" {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Fatalf("granted = %d, want 5", granted)
	}
}
