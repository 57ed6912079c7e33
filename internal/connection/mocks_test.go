package connection

import (
	"context"
	"io"
	"log/slog"

	"github.com/glimte/mmate-jms-go/mq"
	"github.com/stretchr/testify/mock"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context, opts mq.ConnectOptions) (mq.Conn, error) {
	args := m.Called(ctx, opts)
	conn, _ := args.Get(0).(mq.Conn)
	return conn, args.Error(1)
}

type mockConn struct {
	mock.Mock
}

func (m *mockConn) Open(name string, opts mq.OpenOptions) (mq.Queue, error) {
	args := m.Called(name, opts)
	q, _ := args.Get(0).(mq.Queue)
	return q, args.Error(1)
}

func (m *mockConn) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

type mockQueue struct {
	mock.Mock
	name string
}

func newMockQueue(name string) *mockQueue {
	return &mockQueue{name: name}
}

func (m *mockQueue) Name() string {
	return m.name
}

func (m *mockQueue) Put(body []byte, md *mq.Descriptor) error {
	args := m.Called(body, md)
	return args.Error(0)
}

func (m *mockQueue) Get(md *mq.Descriptor, opts mq.GetOptions) ([]byte, error) {
	args := m.Called(md, opts)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func (m *mockQueue) Close() error {
	args := m.Called()
	return args.Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() Settings {
	return Settings{
		QueueManager:           "QM1",
		Channel:                "DEV.APP.SVRCONN",
		Host:                   "localhost",
		Port:                   1414,
		UseSharedConnections:   true,
		CacheOpenSendQueues:    true,
		CacheOpenReceiveQueues: true,
	}
}

func newConnectedManager(settings Settings) (*Manager, *mockConnector, *mockConn) {
	conn := &mockConn{}
	connector := &mockConnector{}
	connector.On("Connect", mock.Anything, mock.Anything).Return(conn, nil)
	return NewManager(connector, settings, WithLogger(quietLogger())), connector, conn
}
