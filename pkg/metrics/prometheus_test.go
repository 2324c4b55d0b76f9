package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordRecords("joined", "SPY", 120)
	r.RecordRecords("joined", "SPY", 5)
	r.RecordError("transport")
	r.RecordPValue("QQQ", 0.42)

	assert.Equal(t, 125.0, testutil.ToFloat64(r.records.WithLabelValues("joined", "SPY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("transport")))
	assert.Equal(t, 0.42, testutil.ToFloat64(r.pValue.WithLabelValues("QQQ")))
}

func TestPushSendsRegistry(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/metrics/job/lunarpull", req.URL.Path)
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.RecordPhaseSource("usno")
	require.NoError(t, r.Push(context.Background(), srv.URL, "lunarpull"))
	assert.NotEmpty(t, body)

	assert.NoError(t, r.Push(context.Background(), "", "lunarpull"))
}
