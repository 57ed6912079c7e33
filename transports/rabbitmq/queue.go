package rabbitmq

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/mmate-jms-go/mq"
)

type conn struct {
	amqp      connection
	connector *Connector
	idPrefix  []byte
	seq       atomic.Uint64
	closed    atomic.Bool
}

func newConn(ac connection, c *Connector) *conn {
	id := uuid.New()
	prefix := append([]byte("AMQ "), id[:mq.IDLength-12]...)
	return &conn{amqp: ac, connector: c, idPrefix: prefix}
}

// nextMsgID builds "AMQ " + 12 connection bytes + an 8-byte counter.
func (c *conn) nextMsgID() []byte {
	id := make([]byte, mq.IDLength)
	copy(id, c.idPrefix)
	binary.BigEndian.PutUint64(id[mq.IDLength-8:], c.seq.Add(1))
	return id
}

func (c *conn) Open(name string, opts mq.OpenOptions) (mq.Queue, error) {
	if c.closed.Load() {
		return nil, mq.NewError("open", mq.RCConnHandleError)
	}
	if c.amqp.IsClosed() {
		return nil, mq.NewError("open", mq.RCConnectionBroken)
	}
	ch, err := c.amqp.Channel()
	if err != nil {
		return nil, wrap("open", err)
	}

	h := &handle{conn: c, ch: ch, name: name, options: opts}
	if c.connector.isModel(name) {
		q, err := ch.QueueDeclare("", false, false, true, false, nil)
		if err != nil {
			ch.Close()
			return nil, wrap("open", err)
		}
		h.name, h.owner = q.Name, true
		c.connector.logger.Debug("declared dynamic queue", "model", name, "queue", q.Name)
		return h, nil
	}

	if _, err := ch.QueueDeclarePassive(name, false, false, false, false, nil); err != nil {
		// the broker closes the channel on a failed passive declare
		ch.Close()
		return nil, wrap("open", err)
	}
	return h, nil
}

func (c *conn) Disconnect() error {
	if !c.closed.CompareAndSwap(false, true) {
		return mq.NewError("disconnect", mq.RCConnHandleError)
	}
	if err := c.amqp.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return wrap("disconnect", err)
	}
	return nil
}

type handle struct {
	conn    *conn
	name    string
	options mq.OpenOptions
	owner   bool // declared the dynamic queue
	closed  atomic.Bool

	mu sync.Mutex // channels are not safe for concurrent use
	ch channel
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) usable(op string) error {
	if h.closed.Load() {
		return mq.NewError(op, mq.RCObjectHandleError)
	}
	if h.conn.closed.Load() || h.conn.amqp.IsClosed() {
		return mq.NewError(op, mq.RCConnectionBroken)
	}
	return nil
}

func (h *handle) Put(body []byte, md *mq.Descriptor) error {
	if err := h.usable("put"); err != nil {
		return err
	}
	if !h.options.Has(mq.OpenOutput) {
		return mq.NewError("put", mq.RCNotOpenForOutput)
	}

	c := h.conn.connector
	now := c.now().UTC()
	md.MsgID = h.conn.nextMsgID()
	md.PutDate = now.Format("20060102")
	md.PutTime = now.Format("150405") + fmt.Sprintf("%02d", now.Nanosecond()/int(10*time.Millisecond))
	md.UserIdentifier = c.username
	md.PutApplName = c.applName
	md.PutApplType = mq.PutApplTypeUnix
	if md.Priority == mq.PriorityAsQueueDef {
		md.Priority = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.publishTimeout)
	defer cancel()

	h.mu.Lock()
	err := h.ch.PublishWithContext(ctx, "", h.name, false, false, publishing(body, md, now))
	h.mu.Unlock()
	if err != nil {
		return wrap("put", err)
	}
	return nil
}

func (h *handle) Get(md *mq.Descriptor, opts mq.GetOptions) ([]byte, error) {
	if err := h.usable("get"); err != nil {
		return nil, err
	}
	if !h.options.Has(mq.OpenInputShared) && !h.options.Has(mq.OpenInputAsQueueDef) {
		return nil, mq.NewError("get", mq.RCNotOpenForInput)
	}

	forever := opts.Waits() && opts.WaitInterval < 0
	var deadline time.Time
	if opts.Waits() && opts.WaitInterval > 0 {
		deadline = time.Now().Add(opts.WaitInterval)
	}

	for {
		h.mu.Lock()
		d, ok, err := h.ch.Get(h.name, true)
		h.mu.Unlock()
		if err != nil {
			return nil, wrap("get", err)
		}
		if ok {
			*md = *descriptor(d)
			return d.Body, nil
		}

		remaining := time.Until(deadline)
		if !forever && remaining <= 0 {
			return nil, mq.NewError("get", mq.RCNoMsgAvailable)
		}
		wait := h.conn.connector.pollInterval
		if !forever {
			wait = min(wait, remaining)
		}
		time.Sleep(wait)

		if err := h.usable("get"); err != nil {
			return nil, err
		}
	}
}

func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return mq.NewError("close", mq.RCObjectHandleError)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.owner && !h.conn.closed.Load() {
		if _, err = h.ch.QueueDelete(h.name, false, false, false); err == nil {
			h.conn.connector.logger.Debug("deleted dynamic queue", "queue", h.name)
		}
	}
	if cerr := h.ch.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) && err == nil {
		err = cerr
	}
	if err != nil {
		return wrap("close", err)
	}
	return nil
}
