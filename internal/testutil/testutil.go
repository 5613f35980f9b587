// Package testutil provides shared test helpers for HTTP handlers and
// synthetic pointer traces.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/pointer.predict/internal/predict"
	"github.com/banshee-data/pointer.predict/internal/trace"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// DoJSON sends a request to h. A non-nil body is JSON encoded, except
// strings, which are sent verbatim.
func DoJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		AssertNoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON decodes rec's body into a T, failing the test on error.
func DecodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// LineSamples returns n samples moving at constant velocity (px/s) from
// (x0, y0), starting at t=0 and spaced dtMs apart.
func LineSamples(n int, x0, y0, vx, vy, dtMs float64) []predict.Sample {
	out := make([]predict.Sample, n)
	for i := range out {
		ts := float64(i) * dtMs
		out[i] = predict.Sample{X: x0 + vx*ts/1000, Y: y0 + vy*ts/1000, Timestamp: ts}
	}
	return out
}

// LineTrace wraps LineSamples in a named trace.
func LineTrace(name string, n int, vx, vy, dtMs float64) *trace.Trace {
	return &trace.Trace{Name: name, Samples: LineSamples(n, 0, 0, vx, vy, dtMs)}
}
