package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eel-studio/storefront/internal/errors"
)

// =============================================================================
// Client Tests
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://api.example.com/"})

	if client.baseURL != "https://api.example.com" {
		t.Errorf("baseURL = %s, want https://api.example.com", client.baseURL)
	}
	if client.maxRetries != 2 {
		t.Errorf("default maxRetries = %d, want 2", client.maxRetries)
	}
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("Authorization = %q, want Bearer key-1", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "msg-1"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "key-1"})

	resp, err := client.Post(context.Background(), "/emails", map[string]string{"to": "a@b.c"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if out.ID != "msg-1" {
		t.Errorf("id = %s, want msg-1", out.ID)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 2, Timeout: time.Second})

	resp, err := client.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDecodeResponse_ErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusUnprocessableEntity)
	rec.WriteString(`{"message":"invalid from"}`)

	err := DecodeResponse(rec.Result(), nil)
	se, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if se.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", se.StatusCode)
	}
	if !strings.Contains(se.Body, "invalid from") {
		t.Errorf("Body = %q, want to contain 'invalid from'", se.Body)
	}
}

// =============================================================================
// Body / Request Tests
// =============================================================================

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdef"), 4)
	if err != nil {
		t.Fatalf("ReadAllWithLimit() error = %v", err)
	}
	if !truncated || string(data) != "abcd" {
		t.Errorf("got (%q, %v), want (\"abcd\", true)", data, truncated)
	}

	if _, err := ReadAllStrict(strings.NewReader("abcdef"), 4); err == nil {
		t.Error("ReadAllStrict() should fail when body exceeds limit")
	}
}

type selectRequest struct {
	Axis     string `json:"axis" validate:"required,oneof=size resin wood leg"`
	OptionID string `json:"optionId" validate:"required"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"axis":"wood","optionId":"walnut"}`, false},
		{"bad axis", `{"axis":"glass","optionId":"x"}`, true},
		{"missing option", `{"axis":"size"}`, true},
		{"malformed", `{"axis":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v selectRequest
			err := DecodeAndValidate(req, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeAndValidate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsCode(err, errors.CodeInvalidInput) {
				t.Errorf("error code = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestWriteError_MapsServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, errors.NotFound("order", "o-9"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != string(errors.CodeNotFound) {
		t.Errorf("code = %s, want NOT_FOUND", body.Code)
	}
}
