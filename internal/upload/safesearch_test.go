package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
)

func newTestSafeSearch(t *testing.T, adult string) *SafeSearchScanner {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"responses":[{"safeSearchAnnotation":{"adult":%q,"violence":"UNLIKELY","racy":"UNLIKELY","spoof":"UNLIKELY","medical":"UNLIKELY"}}]}`, adult)
	}))
	t.Cleanup(srv.Close)

	s, err := NewSafeSearchScanner(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	return s
}

func TestSafeSearchScanner(t *testing.T) {
	if err := newTestSafeSearch(t, "VERY_UNLIKELY").Scan(context.Background(), []byte("img"), "ok.jpg"); err != nil {
		t.Fatalf("safe image rejected: %v", err)
	}

	err := newTestSafeSearch(t, "LIKELY").Scan(context.Background(), []byte("img"), "bad.jpg")
	if !errors.Is(err, ErrFileRejected) {
		t.Fatalf("err = %v, want ErrFileRejected", err)
	}
}
