package memory

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/glimte/mmate-jms-go/mq"
)

type queueKind int

const (
	kindLocal queueKind = iota
	kindModel
	kindDynamic
)

// noWait bounds a get that must not block.
const noWait = time.Millisecond

type message struct {
	md        *mq.Descriptor
	body      []byte
	expiresAt time.Time
}

type localQueue struct {
	name     string
	kind     queueKind
	messages *queue.Queue
}

func newLocalQueue(name string, kind queueKind) *localQueue {
	return &localQueue{
		name:     name,
		kind:     kind,
		messages: queue.New(queueHint),
	}
}

func (q *localQueue) dispose() {
	q.messages.Dispose()
}

type conn struct {
	broker *Broker
	closed atomic.Bool
}

func (c *conn) Open(name string, opts mq.OpenOptions) (mq.Queue, error) {
	if c.closed.Load() {
		return nil, mq.NewError("open", mq.RCConnHandleError)
	}
	q, ok := c.broker.lookup(name)
	if !ok {
		return nil, mq.NewError("open", mq.RCUnknownObjectName)
	}

	h := &handle{conn: c, queue: q, options: opts}
	if q.kind == kindModel {
		dyn := newLocalQueue(c.broker.dynamicName(), kindDynamic)
		c.broker.queues.Set(dyn.name, dyn)
		h.queue, h.owner = dyn, true
	}

	c.broker.opens.Add(1)
	return h, nil
}

func (c *conn) Disconnect() error {
	if !c.closed.CompareAndSwap(false, true) {
		return mq.NewError("disconnect", mq.RCConnHandleError)
	}
	c.broker.disconnects.Add(1)
	return nil
}

type handle struct {
	conn    *conn
	queue   *localQueue
	options mq.OpenOptions
	owner   bool // created the dynamic queue
	closed  atomic.Bool
}

func (h *handle) Name() string {
	return h.queue.name
}

func (h *handle) usable(op string) error {
	if h.closed.Load() {
		return mq.NewError(op, mq.RCObjectHandleError)
	}
	if h.conn.closed.Load() {
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

	b := h.conn.broker
	now := b.now().UTC()

	md.MsgID = b.nextMsgID()
	md.PutDate = now.Format("20060102")
	md.PutTime = now.Format("150405") + twoDigits(now.Nanosecond()/int(10*time.Millisecond))
	md.UserIdentifier = b.userID
	md.PutApplName = b.applName
	md.PutApplType = mq.PutApplTypeUnix
	if md.Priority == mq.PriorityAsQueueDef {
		md.Priority = 0
	}

	stored := &message{md: md.Clone(), body: append([]byte(nil), body...)}
	stored.md.BackoutCount = 0
	if md.Expiry > 0 {
		stored.expiresAt = now.Add(time.Duration(md.Expiry) * 10 * time.Millisecond)
	}

	if err := h.queue.messages.Put(stored); err != nil {
		return &mq.Error{Op: "put", CompCode: mq.CCFailed, Reason: mq.RCObjectHandleError, Err: err}
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

	wait := noWait
	if opts.Waits() {
		switch {
		case opts.WaitInterval < 0:
			wait = 0 // blocks until a message arrives
		case opts.WaitInterval > 0:
			wait = opts.WaitInterval
		}
	}

	deadline := time.Now().Add(wait)
	for {
		items, err := h.queue.messages.Poll(1, wait)
		switch {
		case errors.Is(err, queue.ErrTimeout):
			return nil, mq.NewError("get", mq.RCNoMsgAvailable)
		case errors.Is(err, queue.ErrDisposed):
			return nil, mq.NewError("get", mq.RCObjectHandleError)
		case err != nil:
			return nil, &mq.Error{Op: "get", CompCode: mq.CCFailed, Reason: mq.RCUnexpectedError, Err: err}
		}

		msg := items[0].(*message)
		if !msg.expiresAt.IsZero() && h.conn.broker.now().After(msg.expiresAt) {
			if wait > 0 {
				wait = max(time.Until(deadline), noWait)
			}
			continue
		}

		*md = *msg.md.Clone()
		return msg.body, nil
	}
}

func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return mq.NewError("close", mq.RCObjectHandleError)
	}
	h.conn.broker.closes.Add(1)
	if h.owner {
		h.conn.broker.DeleteQueue(h.queue.name)
	}
	return nil
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10%10), byte('0' + n%10)})
}
