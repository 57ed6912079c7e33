package monitor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jms "github.com/glimte/mmate-jms-go"
	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/transports/memory"
)

func TestPrometheusCollector(t *testing.T) {
	t.Run("records operations", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c, err := NewPrometheusCollector(reg, "test")
		require.NoError(t, err)

		c.IncrementMessageCount("send")
		c.IncrementMessageCount("send")
		c.IncrementErrorCount("receive", "no_message")
		c.RecordProcessingTime("send", 3*time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("send")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("receive", "no_message")))
		assert.Equal(t, 1, testutil.CollectAndCount(c.latency))
	})

	t.Run("registering twice reuses metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first, err := NewPrometheusCollector(reg, "test")
		require.NoError(t, err)
		second, err := NewPrometheusCollector(reg, "test")
		require.NoError(t, err)

		second.IncrementMessageCount("send")
		assert.Equal(t, 1.0, testutil.ToFloat64(first.operations.WithLabelValues("send")))
	})

	t.Run("wired into a connection factory", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c, err := NewPrometheusCollector(reg, "bridge")
		require.NoError(t, err)

		broker := memory.NewBroker("QM1", memory.WithQueues("Q1"))
		f, err := jms.NewConnectionFactory(broker,
			jms.WithQueueManager("QM1"),
			jms.WithMetrics(c),
			jms.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		require.NoError(t, err)
		defer f.Destroy()

		ctx := context.Background()
		require.NoError(t, f.Send(ctx, contracts.NewTextMessage("m"), "Q1"))
		_, err = f.Receive(ctx, "Q1", 0)
		require.NoError(t, err)
		_, err = f.Receive(ctx, "Q1", 0)
		require.True(t, contracts.IsNoMessageAvailable(err))

		assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues(jms.OpSend)))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues(jms.OpReceive)))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues(jms.OpReceive, "no_message")))

		rec := httptest.NewRecorder()
		Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `bridge_jms_operations_total{operation="send"} 1`)
	})
}
