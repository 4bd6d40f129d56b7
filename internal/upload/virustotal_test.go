package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func virusTotalServer(t *testing.T, malicious int) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-apikey") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			if _, _, err := r.FormFile("file"); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"data":{"id":"an-1","type":"analysis"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/analyses/an-1":
			status := "queued"
			if atomic.AddInt32(&polls, 1) > 1 {
				status = "completed"
			}
			fmt.Fprintf(w, `{"data":{"attributes":{"status":%q,"stats":{"malicious":%d,"suspicious":0,"undetected":60}}}}`, status, malicious)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func newTestVirusTotal(endpoint string) *VirusTotalScanner {
	v := NewVirusTotalScanner("key")
	v.Endpoint = endpoint
	v.PollInterval = time.Millisecond
	v.HTTPClient = http.DefaultClient
	return v
}

func TestVirusTotalCleanFile(t *testing.T) {
	srv, polls := virusTotalServer(t, 0)
	v := newTestVirusTotal(srv.URL)

	if err := v.Scan(context.Background(), []byte("photo"), "photo.jpg"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if atomic.LoadInt32(polls) != 2 {
		t.Fatalf("polled %d times, want 2", atomic.LoadInt32(polls))
	}
}

func TestVirusTotalMaliciousFile(t *testing.T) {
	srv, _ := virusTotalServer(t, 3)
	v := newTestVirusTotal(srv.URL)

	err := v.Scan(context.Background(), []byte("photo"), "photo.jpg")
	if !errors.Is(err, ErrFileRejected) {
		t.Fatalf("err = %v, want ErrFileRejected", err)
	}
}

func TestVirusTotalGivesUp(t *testing.T) {
	srv, _ := virusTotalServer(t, 0)
	v := newTestVirusTotal(srv.URL)
	v.MaxPolls = 1

	err := v.Scan(context.Background(), []byte("photo"), "photo.jpg")
	if err == nil || errors.Is(err, ErrFileRejected) {
		t.Fatalf("err = %v, want an incomplete-analysis error", err)
	}
}

func TestVirusTotalRequiresKey(t *testing.T) {
	v := NewVirusTotalScanner("")
	if err := v.Scan(context.Background(), []byte("x"), "x.jpg"); err == nil {
		t.Fatal("expected an error without an api key")
	}
}
