package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNominatimClient_Reverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		for k, want := range map[string]string{
			"format":          "jsonv2",
			"lat":             "12.9716",
			"lon":             "77.5946",
			"addressdetails":  "1",
			"accept-language": "en",
		} {
			if got := q.Get(k); got != want {
				t.Errorf("query %s: expected %q, got %q", k, want, got)
			}
		}
		if ua := r.Header.Get("User-Agent"); ua != "skincare-test/1.0" {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"place_id": 1,
			"display_name": "Chikkajala, Devanahalli, Bengaluru Urban, Karnataka, India",
			"address": {"hamlet": "Chikkajala", "state": "Karnataka", "country": "India", "country_code": "in"}
		}`))
	}))
	defer server.Close()

	c := NewNominatimClient(server.URL+"/", "skincare-test/1.0", "", time.Second)
	res, err := c.Reverse(context.Background(), 12.9716, 77.5946)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Address["hamlet"] != "Chikkajala" || res.Address.First("city", "state") != "Karnataka" {
		t.Errorf("unexpected address %+v", res.Address)
	}
	if res.DisplayName == "" || len(res.Raw) == 0 {
		t.Error("expected display name and raw payload")
	}
}

func TestNominatimClient_UnableToGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	res, err := NewNominatimClient(server.URL, "t", "en", time.Second).Reverse(context.Background(), 0, -30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DisplayName != "" || len(res.Address) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestNominatimClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) }},
		{"slow", func(w http.ResponseWriter, r *http.Request) { time.Sleep(200 * time.Millisecond) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewNominatimClient(server.URL, "t", "en", 50*time.Millisecond)
			if _, err := c.Reverse(context.Background(), 1, 2); err == nil {
				t.Error("expected error")
			}
		})
	}
}
