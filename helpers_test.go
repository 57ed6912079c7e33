package jms

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glimte/mmate-jms-go/transports/memory"
)

var brokerNow = time.Date(2024, 3, 15, 10, 20, 30, 450*int(time.Millisecond), time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBroker(queues ...string) *memory.Broker {
	return memory.NewBroker("QM1",
		memory.WithQueues(queues...),
		memory.WithClock(func() time.Time { return brokerNow }),
		memory.WithLogger(quietLogger()))
}

func newTestFactory(t *testing.T, broker *memory.Broker, options ...FactoryOption) *ConnectionFactory {
	t.Helper()
	opts := append([]FactoryOption{
		WithQueueManager("QM1"),
		WithChannel("DEV.APP.SVRCONN"),
		WithLogger(quietLogger()),
	}, options...)
	f, err := NewConnectionFactory(broker, opts...)
	require.NoError(t, err)
	t.Cleanup(f.Destroy)
	return f
}

type recordingMetrics struct {
	mu       sync.Mutex
	messages map[string]int
	errors   map[string]int
	timings  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		messages: make(map[string]int),
		errors:   make(map[string]int),
		timings:  make(map[string]int),
	}
}

func (r *recordingMetrics) IncrementMessageCount(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[op]++
}

func (r *recordingMetrics) RecordProcessingTime(op string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings[op]++
}

func (r *recordingMetrics) IncrementErrorCount(op, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[op+"/"+errorType]++
}
