package benchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientStationCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/config/stations" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"station_count":12}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	count, err := client.StationCount(context.Background())
	if err != nil {
		t.Fatalf("station count: %v", err)
	}
	if count != 12 {
		t.Fatalf("expected 12 stations, got %d", count)
	}
}

func TestClientManualControlSendsTokenAndBody(t *testing.T) {
	var gotAuth string
	var gotCmd ManualControlCommand
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/stations/control" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotCmd); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"charging station 3 at 5000 mA"}`))
	}))
	defer srv.Close()

	current := 5000
	client := New(srv.URL, WithToken("tok-123"))
	msg, err := client.ManualControl(context.Background(), ManualControlCommand{
		StationID: 3,
		Command:   "charge",
		CurrentMA: &current,
	})
	if err != nil {
		t.Fatalf("manual control: %v", err)
	}
	if msg != "charging station 3 at 5000 mA" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected bearer token header, got %q", gotAuth)
	}
	if gotCmd.StationID != 3 || gotCmd.Command != "charge" || gotCmd.CurrentMA == nil || *gotCmd.CurrentMA != 5000 {
		t.Fatalf("body did not round-trip: %+v", gotCmd)
	}
}

func TestClientAPIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"station 4 is running an automated sequence"}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.StopStation(context.Background(), 4)
	if err == nil {
		t.Fatal("expected an error for a 409 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", apiErr.Status)
	}
	if apiErr.Message != "station 4 is running an automated sequence" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestClientSubmitTaskResult(t *testing.T) {
	var gotPath string
	var gotResult ManualResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotResult); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42,"status":"completed"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithToken("tok-123"))
	err := client.SubmitTaskResult(context.Background(), 42, ManualResult{
		MeasuredValues: json.RawMessage(`{"voltage_mv":24120}`),
		StepResult:     "pass",
		PerformedBy:    "angelo",
	})
	if err != nil {
		t.Fatalf("submit task result: %v", err)
	}
	if gotPath != "/api/job-tasks/42/submit" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotResult.StepResult != "pass" || gotResult.PerformedBy != "angelo" {
		t.Fatalf("body did not round-trip: %+v", gotResult)
	}
}

func TestClientPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.StationCount(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "bad gateway" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}
