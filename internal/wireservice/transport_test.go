package wireservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransportRetriesOn429(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewTransport(server.URL, nil, nil)
	body, status, err := tr.Get(context.Background(), "/anything", nil)
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestTransportReplaysBodyOnRetry(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodies = append(bodies, string(buf[:n]))
		if len(bodies) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewTransport(server.URL, nil, nil)
	_, status, err := tr.Post(context.Background(), "/x", []byte(`{"a":1}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Errorf("request bodies differ across retry: %q", bodies)
	}
}

func TestTransportGivesUpAfterMaxRetries(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tr := NewTransport(server.URL, nil, nil)
	_, status, err := tr.Get(context.Background(), "/x", nil)
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 surfaced to caller", status)
	}
	if requests != 4 {
		t.Errorf("requests = %d, want 4 (initial + 3 retries)", requests)
	}
}
