package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestManagerConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("connects once with client channel options", func(t *testing.T) {
		conn := &mockConn{}
		connector := &mockConnector{}
		connector.On("Connect", mock.Anything, mock.MatchedBy(func(o mq.ConnectOptions) bool {
			return o.QueueManager == "QM1" &&
				o.Channel == "DEV.APP.SVRCONN" &&
				o.ConnectionName == "localhost(1414)" &&
				o.ChannelType == mq.ChannelTypeClientConn &&
				o.TransportType == mq.TransportTCP &&
				o.Options == mq.ConnectHandleShareBlock
		})).Return(conn, nil).Once()

		m := NewManager(connector, testSettings(), WithLogger(quietLogger()))
		assert.Equal(t, StateDisconnected, m.State())

		require.NoError(t, m.Connect(ctx))
		require.NoError(t, m.Connect(ctx))
		assert.True(t, m.IsConnected())
		assert.Equal(t, StateConnected, m.State())
		connector.AssertExpectations(t)
	})

	t.Run("unshared connections", func(t *testing.T) {
		settings := testSettings()
		settings.UseSharedConnections = false
		settings.SSLCipherSpec = "TLS_AES_256_GCM_SHA384"
		settings.SSLKeyRepository = "/etc/mq/ca.pem"

		opts := NewManager(&mockConnector{}, settings).ConnectOptions()
		assert.Equal(t, mq.ConnectHandleShareNone, opts.Options)
		assert.True(t, opts.TLSEnabled())
		assert.Equal(t, "/etc/mq/ca.pem", opts.KeyRepository)
	})

	t.Run("failed connect leaves the manager disconnected", func(t *testing.T) {
		connector := &mockConnector{}
		connectErr := mq.NewError("connect", mq.RCQueueManagerNotAvail)
		connector.On("Connect", mock.Anything, mock.Anything).Return(nil, connectErr).Once()

		m := NewManager(connector, testSettings(), WithLogger(quietLogger()))
		err := m.Connect(ctx)
		assert.ErrorIs(t, err, connectErr)
		assert.Equal(t, StateDisconnected, m.State())
	})

	t.Run("connection info", func(t *testing.T) {
		m := NewManager(&mockConnector{}, testSettings())
		assert.Equal(t, "queue manager=[QM1], channel=[DEV.APP.SVRCONN], conn_name=[localhost(1414)]", m.ConnectionInfo())
		assert.Equal(t, DefaultDynamicQueueTemplate, m.Settings().DynamicQueueTemplate)
	})
}

func TestManagerAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("cached handles are shared and kept open", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		q := newMockQueue("ORDERS")
		conn.On("Open", "ORDERS", regularOpenOptions).Return(q, nil).Once()

		first, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		require.NoError(t, first.Release())
		second, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		require.NoError(t, second.Release())

		assert.Same(t, first.Handle, second.Handle)
		assert.True(t, first.Cached())
		q.AssertNotCalled(t, "Close")
		assert.Equal(t, CacheStats{Send: 1}, m.CacheStats())
	})

	t.Run("send and receive caches are independent", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		conn.On("Open", "ORDERS", regularOpenOptions).Return(newMockQueue("ORDERS"), nil).Twice()

		send, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		recv, err := m.Acquire(ctx, KindReceive, "ORDERS")
		require.NoError(t, err)

		assert.NotSame(t, send.Handle, recv.Handle)
		assert.Equal(t, CacheStats{Send: 1, Receive: 1}, m.CacheStats())
	})

	t.Run("uncached handles are opened and closed per operation", func(t *testing.T) {
		settings := testSettings()
		settings.CacheOpenSendQueues = false
		m, _, conn := newConnectedManager(settings)

		q1, q2 := newMockQueue("ORDERS"), newMockQueue("ORDERS")
		q1.On("Close").Return(nil).Once()
		q2.On("Close").Return(nil).Once()
		conn.On("Open", "ORDERS", regularOpenOptions).Return(q1, nil).Once()
		conn.On("Open", "ORDERS", regularOpenOptions).Return(q2, nil).Once()

		for i := 0; i < 2; i++ {
			lease, err := m.Acquire(ctx, KindSend, "ORDERS")
			require.NoError(t, err)
			assert.False(t, lease.Cached())
			require.NoError(t, lease.Release())
		}

		q1.AssertExpectations(t)
		q2.AssertExpectations(t)
		assert.Equal(t, CacheStats{}, m.CacheStats())
	})

	t.Run("receive uses the dynamic handle", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		dq := newMockQueue("AMQ.1234")
		conn.On("Open", DefaultDynamicQueueTemplate, dynamicOpenOptions).Return(dq, nil).Once()

		name, err := m.OpenDynamicQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AMQ.1234", name)

		lease, err := m.Acquire(ctx, KindReceive, name)
		require.NoError(t, err)
		assert.Same(t, dq, lease.Handle.Queue)
		assert.Equal(t, CacheStats{Dynamic: 1}, m.CacheStats())
	})

	t.Run("open failures surface", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		openErr := mq.NewError("open", mq.RCUnknownObjectName)
		conn.On("Open", "MISSING", regularOpenOptions).Return(nil, openErr).Once()

		_, err := m.Acquire(ctx, KindSend, "MISSING")
		assert.ErrorIs(t, err, openErr)
	})
}

func TestManagerCloseQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("closes each distinct handle once", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		dq := newMockQueue("AMQ.1234")
		sq := newMockQueue("AMQ.1234")
		dq.On("Close").Return(nil).Once()
		sq.On("Close").Return(nil).Once()
		conn.On("Open", DefaultDynamicQueueTemplate, dynamicOpenOptions).Return(dq, nil).Once()
		conn.On("Open", "AMQ.1234", regularOpenOptions).Return(sq, nil).Once()

		name, err := m.OpenDynamicQueue(ctx)
		require.NoError(t, err)
		_, err = m.Acquire(ctx, KindSend, name)
		require.NoError(t, err)

		require.NoError(t, m.CloseQueue(name))
		require.NoError(t, m.CloseQueue(name))

		dq.AssertExpectations(t)
		sq.AssertExpectations(t)
		assert.Equal(t, CacheStats{}, m.CacheStats())
	})

	t.Run("joins close errors", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		q := newMockQueue("ORDERS")
		closeErr := mq.NewError("close", mq.RCConnectionBroken)
		q.On("Close").Return(closeErr).Once()
		conn.On("Open", "ORDERS", regularOpenOptions).Return(q, nil).Once()

		_, err := m.Acquire(ctx, KindReceive, "ORDERS")
		require.NoError(t, err)
		assert.ErrorIs(t, m.CloseQueue("ORDERS"), closeErr)
	})

	t.Run("CloseDynamicQueue", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		assert.NoError(t, m.CloseDynamicQueue("AMQ.NEVER"), "no-op while disconnected")

		require.NoError(t, m.Connect(ctx))
		assert.ErrorIs(t, m.CloseDynamicQueue("AMQ.NEVER"), ErrQueueNotOpen)

		dq := newMockQueue("AMQ.1")
		dq.On("Close").Return(nil).Once()
		conn.On("Open", DefaultDynamicQueueTemplate, dynamicOpenOptions).Return(dq, nil).Once()
		name, err := m.OpenDynamicQueue(ctx)
		require.NoError(t, err)

		require.NoError(t, m.CloseDynamicQueue(name))
		dq.AssertExpectations(t)
	})
}

func TestManagerDestroy(t *testing.T) {
	ctx := context.Background()

	t.Run("destroy twice is idempotent", func(t *testing.T) {
		m, connector, conn := newConnectedManager(testSettings())
		q := newMockQueue("ORDERS")
		q.On("Close").Return(nil).Once()
		conn.On("Open", "ORDERS", regularOpenOptions).Return(q, nil).Once()
		conn.On("Disconnect").Return(nil).Once()

		_, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)

		m.Destroy()
		m.Destroy()

		assert.Equal(t, StateDisconnected, m.State())
		assert.Equal(t, CacheStats{}, m.CacheStats())
		q.AssertExpectations(t)
		conn.AssertExpectations(t)
		connector.AssertNumberOfCalls(t, "Connect", 1)
	})

	t.Run("failures are logged not returned", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		q := newMockQueue("ORDERS")
		q.On("Close").Return(errors.New("close failed")).Once()
		conn.On("Open", "ORDERS", regularOpenOptions).Return(q, nil).Once()
		conn.On("Disconnect").Return(errors.New("disconnect failed")).Once()

		_, err := m.Acquire(ctx, KindReceive, "ORDERS")
		require.NoError(t, err)

		assert.NotPanics(t, m.Destroy)
		assert.Equal(t, StateDisconnected, m.State())
		assert.False(t, m.IsDisconnecting())
	})

	t.Run("reconnects lazily afterwards", func(t *testing.T) {
		m, connector, conn := newConnectedManager(testSettings())
		conn.On("Disconnect").Return(nil)
		conn.On("Open", "ORDERS", regularOpenOptions).Return(newMockQueue("ORDERS"), nil)

		require.NoError(t, m.Connect(ctx))
		m.Destroy()

		_, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		assert.True(t, m.IsConnected())
		connector.AssertNumberOfCalls(t, "Connect", 2)
	})

	t.Run("operations during teardown do not reach the transport", func(t *testing.T) {
		defer leaktest.Check(t)()

		m, _, conn := newConnectedManager(testSettings())
		release := make(chan struct{})
		conn.On("Disconnect").Run(func(mock.Arguments) { <-release }).Return(nil).Once()
		require.NoError(t, m.Connect(ctx))

		done := make(chan struct{})
		go func() {
			defer close(done)
			m.Destroy()
		}()

		require.Eventually(t, m.IsDisconnecting, time.Second, time.Millisecond)
		assert.Equal(t, StateDisconnecting, m.State())

		_, err := m.Acquire(ctx, KindReceive, "ORDERS")
		assert.ErrorIs(t, err, contracts.ErrDisconnecting)
		_, err = m.OpenDynamicQueue(ctx)
		assert.ErrorIs(t, err, contracts.ErrDisconnecting)
		assert.NoError(t, m.CloseDynamicQueue("AMQ.1"))

		close(release)
		<-done
		conn.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})
}

func TestManagerInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("broken connection is dropped and replaced on next use", func(t *testing.T) {
		broken := &mockConn{}
		healthy := &mockConn{}
		connector := &mockConnector{}
		connector.On("Connect", mock.Anything, mock.Anything).Return(broken, nil).Once()
		connector.On("Connect", mock.Anything, mock.Anything).Return(healthy, nil).Once()

		stale := newMockQueue("ORDERS")
		stale.On("Close").Return(errors.New("already gone")).Once()
		broken.On("Open", "ORDERS", regularOpenOptions).Return(stale, nil).Once()
		broken.On("Disconnect").Return(nil).Once()
		fresh := newMockQueue("ORDERS")
		healthy.On("Open", "ORDERS", regularOpenOptions).Return(fresh, nil).Once()

		m := NewManager(connector, testSettings(), WithLogger(quietLogger()))
		lease, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		assert.Same(t, broken, lease.Conn())

		assert.True(t, m.Invalidate(lease.Conn(), mq.NewError("put", mq.RCConnectionBroken)))
		assert.Equal(t, StateDisconnected, m.State())
		assert.Equal(t, CacheStats{}, m.CacheStats())

		lease, err = m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		assert.Same(t, fresh, lease.Handle.Queue)
		assert.Same(t, healthy, lease.Conn())
		assert.True(t, m.IsConnected())
		connector.AssertNumberOfCalls(t, "Connect", 2)
		stale.AssertExpectations(t)
		broken.AssertExpectations(t)
	})

	t.Run("open failure on a broken connection resets it", func(t *testing.T) {
		m, connector, conn := newConnectedManager(testSettings())
		conn.On("Open", "ORDERS", regularOpenOptions).
			Return(nil, mq.NewError("open", mq.RCQueueManagerStopping)).Once()
		conn.On("Disconnect").Return(nil).Once()

		_, err := m.Acquire(ctx, KindSend, "ORDERS")
		require.Error(t, err)
		assert.False(t, m.IsConnected())

		conn.On("Open", "ORDERS", regularOpenOptions).Return(newMockQueue("ORDERS"), nil).Once()
		_, err = m.Acquire(ctx, KindSend, "ORDERS")
		require.NoError(t, err)
		connector.AssertNumberOfCalls(t, "Connect", 2)
	})

	t.Run("other failures keep the connection", func(t *testing.T) {
		m, _, conn := newConnectedManager(testSettings())
		require.NoError(t, m.Connect(ctx))

		assert.False(t, m.Invalidate(nil, mq.NewError("put", mq.RCConnectionBroken)))
		assert.False(t, m.Invalidate(conn, mq.NewError("put", mq.RCUnknownObjectName)))
		assert.False(t, m.Invalidate(conn, errors.New("plain")))
		assert.False(t, m.Invalidate(&mockConn{}, mq.NewError("put", mq.RCConnectionBroken)))
		assert.True(t, m.IsConnected())
		conn.AssertNotCalled(t, "Disconnect")
	})
}

func TestConnectionLost(t *testing.T) {
	for _, reason := range []int32{mq.RCConnectionBroken, mq.RCConnHandleError, mq.RCQueueManagerQuiesce, mq.RCQueueManagerStopping} {
		assert.True(t, ConnectionLost(mq.NewError("get", reason)), mq.ReasonText(reason))
	}
	assert.False(t, ConnectionLost(mq.NewError("get", mq.RCNoMsgAvailable)))
	assert.False(t, ConnectionLost(context.Canceled))
}
