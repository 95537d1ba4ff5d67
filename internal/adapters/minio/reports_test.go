package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// s3Stub answers just enough of the S3 API for bucket checks and uploads.
type s3Stub struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string]string
	ctypes   map[string]string
	requests []string
}

func newS3Stub(buckets ...string) *s3Stub {
	s := &s3Stub{buckets: map[string]bool{}, objects: map[string]string{}, ctypes: map[string]string{}}
	for _, b := range buckets {
		s.buckets[b] = true
	}
	return s
}

func (s *s3Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	// minio-go addresses buckets as "/<bucket>/".
	bucketLevel := len(parts) == 1 || parts[1] == ""
	switch {
	case r.Method == http.MethodHead && bucketLevel:
		if !s.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && bucketLevel:
		_, _ = io.Copy(io.Discard, r.Body)
		s.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[bucket+"/"+parts[1]] = string(body)
		s.ctypes[bucket+"/"+parts[1]] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestStore(t *testing.T, stub *s3Stub) *ReportStore {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	store, err := NewReportStore(Options{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "test",
		SecretKey: "testtesttest",
		Bucket:    "reports",
	})
	if err != nil {
		t.Fatalf("NewReportStore: %v", err)
	}
	return store
}

func TestNewReportStore_RequiresBucket(t *testing.T) {
	if _, err := NewReportStore(Options{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without a bucket")
	}
}

func TestEnsureBucket_CreatesMissing(t *testing.T) {
	stub := newS3Stub()
	store := newTestStore(t, stub)

	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if !stub.buckets["reports"] {
		t.Error("expected bucket to be created")
	}
	if len(stub.requests) < 2 || !strings.HasPrefix(stub.requests[0], "HEAD /reports") {
		t.Errorf("expected HEAD then PUT on the bucket, got %v", stub.requests)
	}
}

func TestEnsureBucket_Existing(t *testing.T) {
	stub := newS3Stub("reports")
	store := newTestStore(t, stub)

	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if len(stub.requests) == 0 || !strings.HasPrefix(stub.requests[0], "HEAD /reports") {
		t.Errorf("expected a bucket HEAD, got %v", stub.requests)
	}
	for _, req := range stub.requests {
		if strings.HasPrefix(req, "PUT") {
			t.Errorf("unexpected request %s", req)
		}
	}
}

func TestPutReport(t *testing.T) {
	stub := newS3Stub("reports")
	store := newTestStore(t, stub)

	body := "id,form_id\nr1,f1\n"
	err := store.PutReport(context.Background(), "reports/resolutions-1.csv", "text/csv", strings.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	// Plain-HTTP uploads may be chunk-signed, so only look for the payload.
	if got := stub.objects["reports/reports/resolutions-1.csv"]; !strings.Contains(got, body) {
		t.Errorf("unexpected object body %q", got)
	}
	if ct := stub.ctypes["reports/reports/resolutions-1.csv"]; ct != "text/csv" {
		t.Errorf("unexpected content type %q", ct)
	}
}
