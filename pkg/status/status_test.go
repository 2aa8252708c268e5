package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itohio/goadc/pkg/adc"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/itohio/goadc/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func filledTrace(n int) *trace.Trace {
	tr := trace.NewWindow(time.Hour)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range n {
		tr.Add(sample.Sample{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Raw:       adc.Sample(1000 + i),
			Volts:     float64(1000+i) * 3.3 / 4096,
		})
	}
	return tr
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := New(filledTrace(0), zaptest.NewLogger(t).Sugar())

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name string
		n    int
		code int
		raw  uint16
	}{
		{"no samples", 0, http.StatusNotFound, 0},
		{"one sample", 1, http.StatusOK, 1000},
		{"several samples", 5, http.StatusOK, 1004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(filledTrace(tt.n), nil)
			rec := get(t, srv, "/latest")
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}

			var resp SampleResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.raw, resp.Raw)
		})
	}
}

func TestStats(t *testing.T) {
	srv := New(filledTrace(3), nil)

	rec := get(t, srv, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.InDelta(t, 1000*3.3/4096, resp.Min, 1e-9)
	assert.InDelta(t, 1002*3.3/4096, resp.Max, 1e-9)
	assert.InDelta(t, 1001*3.3/4096, resp.Mean, 1e-9)
	require.NotNil(t, resp.Latest)
	assert.Equal(t, uint16(1002), resp.Latest.Raw)
}

func TestStats_Empty(t *testing.T) {
	srv := New(filledTrace(0), nil)

	rec := get(t, srv, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"min":0,"max":0,"mean":0,"stddev":0}`, rec.Body.String())
}

func TestSamples(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   int
		count  int
	}{
		{"all", "/samples", http.StatusOK, 10},
		{"downsampled", "/samples?points=5", http.StatusOK, 5},
		{"zero points means all", "/samples?points=0", http.StatusOK, 10},
		{"more points than samples", "/samples?points=50", http.StatusOK, 10},
		{"invalid", "/samples?points=abc", http.StatusBadRequest, 0},
		{"negative", "/samples?points=-1", http.StatusBadRequest, 0},
	}

	srv := New(filledTrace(10), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}

			var resp []SampleResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp, tt.count)
			assert.Equal(t, uint16(1000), resp[0].Raw)
		})
	}
}

func TestSamples_Empty(t *testing.T) {
	srv := New(filledTrace(0), nil)

	rec := get(t, srv, "/samples")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(filledTrace(0), nil)

	req := httptest.NewRequest(http.MethodPost, "/latest", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	srv := New(filledTrace(1), zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, addr)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 6):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}

func TestListenAndServe_BindError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := New(filledTrace(0), nil)
	err = srv.ListenAndServe(context.Background(), l.Addr().String())
	assert.Error(t, err)
}

type panickySource struct{}

func (panickySource) Samples() []sample.Sample { panic("trace gone") }
func (panickySource) Stats() trace.Stats       { panic("trace gone") }

func TestHandler_RecoversFromPanic(t *testing.T) {
	srv := New(panickySource{}, zaptest.NewLogger(t).Sugar())

	rec := get(t, srv, "/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
