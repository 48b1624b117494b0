package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lightlink-network/ll-rollup-api/rollup"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsEvents(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, rollup.Event{Type: rollup.EventDeposited, Amount: 1000}))
	require.NoError(t, r.Publish(ctx, rollup.Event{Type: rollup.EventDeposited, Amount: 500}))
	require.NoError(t, r.Publish(ctx, rollup.Event{Type: rollup.EventBatchSubmitted}))

	require.Equal(t, float64(2), testutil.ToFloat64(r.events.WithLabelValues(string(rollup.EventDeposited))))
	require.Equal(t, float64(1500), testutil.ToFloat64(r.eventAmounts.WithLabelValues(string(rollup.EventDeposited))))
	require.Equal(t, float64(1), testutil.ToFloat64(r.events.WithLabelValues(string(rollup.EventBatchSubmitted))))
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	r.RecordRequest("/v1/rollups", 201, 3*time.Millisecond)
	r.RecordKeeperAction("finalizer", "finalized")
	r.RecordKeeperHeight("finalizer", 4200)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `ll_rollup_request_count{code="201",route="/v1/rollups"} 1`)
	require.Contains(t, string(body), `ll_rollup_keeper_last_height{keeper="finalizer"} 4200`)
}
