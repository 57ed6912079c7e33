package rabbitmq

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/mmate-jms-go/mq"
)

// Descriptor fields without a native AMQP property
const (
	headerFormat      = "x-mq-format"
	headerCCSID       = "x-mq-ccsid"
	headerEncoding    = "x-mq-encoding"
	headerMsgType     = "x-mq-msg-type"
	headerReport      = "x-mq-report"
	headerFeedback    = "x-mq-feedback"
	headerExpiry      = "x-mq-expiry"
	headerPersistence = "x-mq-persistence"
	headerReplyToQMgr = "x-mq-reply-to-qmgr"
	headerUserID      = "x-mq-user-id"
	headerPutApplType = "x-mq-put-appl-type"
	headerPutDate     = "x-mq-put-date"
	headerPutTime     = "x-mq-put-time"
	headerGroupID     = "x-mq-group-id"
	headerMsgSeq      = "x-mq-msg-seq"
	headerMsgFlags    = "x-mq-msg-flags"

	// set by quorum queues
	headerDeliveryCount = "x-delivery-count"
)

const rfh2StrucID = "RFH "

func publishing(body []byte, md *mq.Descriptor, now time.Time) amqp.Publishing {
	headers := amqp.Table{
		headerFormat:      md.Format,
		headerCCSID:       md.CodedCharSetID,
		headerEncoding:    md.Encoding,
		headerMsgType:     md.MsgType,
		headerReport:      md.Report,
		headerFeedback:    md.Feedback,
		headerExpiry:      md.Expiry,
		headerPersistence: md.Persistence,
		headerUserID:      md.UserIdentifier,
		headerPutApplType: md.PutApplType,
		headerPutDate:     md.PutDate,
		headerPutTime:     md.PutTime,
		headerMsgSeq:      md.MsgSeqNumber,
		headerMsgFlags:    md.MsgFlags,
	}
	if !mq.Blank(md.ReplyToQMgr) {
		headers[headerReplyToQMgr] = mq.Trim(md.ReplyToQMgr)
	}
	if !mq.IsZeroID(md.GroupID) {
		headers[headerGroupID] = hex.EncodeToString(md.GroupID)
	}

	p := amqp.Publishing{
		Headers:      headers,
		DeliveryMode: amqp.Transient,
		Priority:     uint8(min(max(md.Priority, 0), 9)),
		ReplyTo:      mq.Trim(md.ReplyToQ),
		MessageId:    hex.EncodeToString(md.MsgID),
		Timestamp:    now,
		AppId:        mq.Trim(md.PutApplName),
		Body:         body,
	}
	if md.Persistence == mq.PersistencePersistent {
		p.DeliveryMode = amqp.Persistent
	}
	if !mq.IsZeroID(md.CorrelID) {
		p.CorrelationId = hex.EncodeToString(md.CorrelID)
	}
	if md.Expiry > 0 {
		// expiry is in tenths of a second
		p.Expiration = strconv.FormatInt(int64(md.Expiry)*100, 10)
	}
	if mq.Trim(md.Format) == mq.Trim(mq.FormatString) {
		p.ContentType = "text/plain"
	}
	return p
}

// descriptor rebuilds the descriptor of a delivery. Messages published by
// plain AMQP clients carry no x-mq-* headers and get transport defaults.
func descriptor(d amqp.Delivery) *mq.Descriptor {
	md := mq.NewDescriptor()
	h := d.Headers

	md.MsgID = decodeID(d.MessageId)
	md.CorrelID = decodeID(d.CorrelationId)
	md.ReplyToQ = d.ReplyTo
	md.Priority = int32(d.Priority)
	md.PutApplName = d.AppId
	md.UserIdentifier = d.UserId

	md.Persistence = mq.PersistenceNotPersistent
	if d.DeliveryMode == amqp.Persistent {
		md.Persistence = mq.PersistencePersistent
	}
	if v, ok := tableInt(h, headerPersistence); ok && v != mq.PersistenceAsQueueDef {
		md.Persistence = v
	}

	if v, ok := tableString(h, headerFormat); ok {
		md.Format = v
	} else {
		md.Format = inferFormat(d)
	}
	if v, ok := tableString(h, headerUserID); ok {
		md.UserIdentifier = v
	}
	if v, ok := tableString(h, headerReplyToQMgr); ok {
		md.ReplyToQMgr = v
	}
	if v, ok := tableString(h, headerPutDate); ok {
		md.PutDate = v
	}
	if v, ok := tableString(h, headerPutTime); ok {
		md.PutTime = v
	}
	if md.PutDate == "" && !d.Timestamp.IsZero() {
		ts := d.Timestamp.UTC()
		md.PutDate = ts.Format("20060102")
		md.PutTime = ts.Format("150405") + "00"
	}
	if v, ok := tableString(h, headerGroupID); ok {
		md.GroupID = decodeID(v)
	}

	for key, field := range map[string]*int32{
		headerCCSID:       &md.CodedCharSetID,
		headerEncoding:    &md.Encoding,
		headerMsgType:     &md.MsgType,
		headerReport:      &md.Report,
		headerFeedback:    &md.Feedback,
		headerExpiry:      &md.Expiry,
		headerPutApplType: &md.PutApplType,
		headerMsgSeq:      &md.MsgSeqNumber,
		headerMsgFlags:    &md.MsgFlags,
	} {
		if v, ok := tableInt(h, key); ok {
			*field = v
		}
	}
	if _, ok := h[headerExpiry]; !ok && d.Expiration != "" {
		if ms, err := strconv.ParseInt(d.Expiration, 10, 32); err == nil {
			md.Expiry = int32(ms / 100)
		}
	}

	if d.Redelivered {
		md.BackoutCount = 1
	}
	if v, ok := tableInt(h, headerDeliveryCount); ok {
		md.BackoutCount = v
	}
	return md
}

func inferFormat(d amqp.Delivery) string {
	switch {
	case bytes.HasPrefix(d.Body, []byte(rfh2StrucID)):
		return mq.FormatRFHeader2
	case d.ContentType == "" || strings.HasPrefix(d.ContentType, "text/"):
		return mq.FormatString
	}
	return mq.FormatNone
}

// decodeID accepts the hex ids written by publishing and falls back to the
// raw bytes of foreign ids.
func decodeID(s string) []byte {
	if s == "" {
		return make([]byte, mq.IDLength)
	}
	if id, err := hex.DecodeString(s); err == nil && len(id) <= mq.IDLength {
		return mq.FixedID(id)
	}
	return mq.FixedID([]byte(s))
}

func tableString(t amqp.Table, key string) (string, bool) {
	switch v := t[key].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

func tableInt(t amqp.Table, key string) (int32, bool) {
	switch v := t[key].(type) {
	case int8:
		return int32(v), true
	case int16:
		return int32(v), true
	case int32:
		return v, true
	case int64:
		return int32(v), true
	case int:
		return int32(v), true
	case uint8:
		return int32(v), true
	case uint16:
		return int32(v), true
	case uint32:
		return int32(v), true
	}
	return 0, false
}
