package mapper

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/internal/mqrfh2"
	"github.com/glimte/mmate-jms-go/mq"
)

// JMS folder leaves
const (
	leafDestination  = "Dst"
	leafTimestamp    = "Tms"
	leafDeliveryMode = "Dlv"
	leafExpiration   = "Exp"
	leafPriority     = "Pri"
	leafCorrelation  = "Cid"
)

var reportBits = map[string]int32{
	contracts.PropReportException:    mq.ReportException,
	contracts.PropReportExpiration:   mq.ReportExpiration,
	contracts.PropReportCOA:          mq.ReportCOA,
	contracts.PropReportCOD:          mq.ReportCOD,
	contracts.PropReportPAN:          mq.ReportPAN,
	contracts.PropReportNAN:          mq.ReportNAN,
	contracts.PropReportPassMsgID:    mq.ReportPassMsgID,
	contracts.PropReportPassCorrelID: mq.ReportPassCorrelID,
	contracts.PropReportDiscardMsg:   mq.ReportDiscardMsg,
}

// Mapper converts messages to and from their wire form.
type Mapper struct {
	codec  *mqrfh2.Codec
	logger *slog.Logger
}

// Option configures a Mapper
type Option func(*Mapper)

// WithCodec sets the header codec
func WithCodec(codec *mqrfh2.Codec) Option {
	return func(m *Mapper) {
		m.codec = codec
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) {
		m.logger = logger
	}
}

// New creates a mapper. Without WithCodec it uses a codec that writes the
// mcd folder.
func New(options ...Option) *Mapper {
	m := &Mapper{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.codec == nil {
		m.codec = mqrfh2.NewCodec(mqrfh2.WithLogger(m.logger))
	}
	return m
}

// Codec returns the header codec in use.
func (m *Mapper) Codec() *mqrfh2.Codec {
	return m.codec
}

// ToWire builds the descriptor and body for sending msg to queueName.
// msg is not modified.
func (m *Mapper) ToWire(msg *contracts.TextMessage, queueName string, now time.Time) (*mq.Descriptor, []byte, error) {
	md, err := m.descriptor(msg)
	if err != nil {
		return nil, nil, err
	}

	nowMillis := now.UnixMilli()

	jms := mqrfh2.NewFolder(mqrfh2.FolderJMS)
	jms.Add(leafDestination, QueueLocator(queueName))
	jms.Add(leafTimestamp, strconv.FormatInt(nowMillis, 10))
	jms.Add(leafDeliveryMode, strconv.Itoa(int(deliveryModeOrDefault(msg.DeliveryMode))))
	if msg.Expiration > 0 {
		jms.Add(leafExpiration, strconv.FormatInt(nowMillis+msg.Expiration, 10))
	}
	if msg.Priority != 0 {
		jms.Add(leafPriority, strconv.Itoa(msg.Priority))
	}
	if msg.CorrelationID != "" {
		jms.Add(leafCorrelation, msg.CorrelationID)
	}

	usr := mqrfh2.NewFolder(mqrfh2.FolderUSR)
	for _, name := range msg.UserPropertyNames() {
		usr.Add(name, contracts.PropertyString(msg.Properties[name]))
	}

	header, err := m.codec.Encode(jms, usr)
	if err != nil {
		return nil, nil, fmt.Errorf("mapper: encode header: %w", err)
	}

	body := make([]byte, 0, len(header)+len(msg.Text))
	body = append(body, header...)
	body = append(body, msg.Text...)
	return md, body, nil
}

func (m *Mapper) descriptor(msg *contracts.TextMessage) (*mq.Descriptor, error) {
	md := mq.NewDescriptor()
	md.Format = mq.FormatRFHeader2
	md.CodedCharSetID = mq.CCSIDUTF8
	md.Encoding = mq.EncodingDefault

	if msg.CorrelationID != "" {
		id, err := IdentifierBytes(msg.CorrelationID)
		if err != nil {
			return nil, err
		}
		md.CorrelID = id
	}

	switch deliveryModeOrDefault(msg.DeliveryMode) {
	case contracts.DeliveryModeNonPersistent:
		md.Persistence = mq.PersistenceNotPersistent
	case contracts.DeliveryModePersistent:
		md.Persistence = mq.PersistencePersistent
	default:
		return nil, fmt.Errorf("%w: %d", contracts.ErrUnknownDeliveryMode, int(msg.DeliveryMode))
	}

	if msg.Priority != 0 {
		if msg.Priority < 0 || msg.Priority > math.MaxInt32 {
			return nil, fmt.Errorf("%w: priority=%d", ErrInvalidProperty, msg.Priority)
		}
		md.Priority = int32(msg.Priority)
	}

	if msg.ReplyTo != "" {
		md.ReplyToQMgr, md.ReplyToQ = ParseReplyTo(msg.ReplyTo)
	}

	if msg.Expiration > 0 {
		md.Expiry = ExpiryFromMillis(msg.Expiration)
	}

	if msg.HasProperty(contracts.PropGroupSeq) {
		seq, ok := int32Property(msg, contracts.PropGroupSeq)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProperty, contracts.PropGroupSeq)
		}
		md.MsgSeqNumber = seq
		md.MsgFlags |= mq.MsgFlagMsgInGroup
	}

	if groupID, ok := msg.StringProperty(contracts.PropGroupID); ok {
		id, err := IdentifierBytes(groupID)
		if err != nil {
			return nil, err
		}
		md.GroupID = id
		md.MsgFlags |= mq.MsgFlagMsgInGroup
	}

	for name, bit := range reportBits {
		set, err := reportFlag(msg, name, bit)
		if err != nil {
			return nil, err
		}
		md.Report |= set
	}

	if msg.HasProperty(contracts.PropFeedback) {
		feedback, ok := int32Property(msg, contracts.PropFeedback)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProperty, contracts.PropFeedback)
		}
		md.Feedback = feedback
	}

	if v, ok := msg.Property(contracts.PropLastMsgInGroup); ok && v != nil && v != false {
		md.MsgFlags |= mq.MsgFlagLastInGroup
	}

	return md, nil
}

// reportFlag returns the report bits requested by a report property. A
// bool selects the canonical bit, an integer is OR-ed in as given.
func reportFlag(msg *contracts.TextMessage, name string, bit int32) (int32, error) {
	v, ok := msg.Property(name)
	if !ok || v == nil {
		return 0, nil
	}
	if b, isBool := v.(bool); isBool {
		if b {
			return bit, nil
		}
		return 0, nil
	}
	n, ok := int32Property(msg, name)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidProperty, name, v)
	}
	return n, nil
}

// int32Property reads an integer property that must fit a descriptor field.
func int32Property(msg *contracts.TextMessage, name string) (int32, bool) {
	n, ok := msg.IntProperty(name)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}

func deliveryModeOrDefault(mode contracts.DeliveryMode) contracts.DeliveryMode {
	if mode == 0 {
		return contracts.DeliveryModePersistent
	}
	return mode
}

// FromWire rebuilds a message from a received descriptor and body. Bodies
// whose format is not RFH2 are taken as the bare text payload.
func (m *Mapper) FromWire(md *mq.Descriptor, body []byte) (*contracts.TextMessage, error) {
	msg := &contracts.TextMessage{Properties: make(map[string]any)}

	var jms mqrfh2.Folder
	payload := body
	if mq.Trim(md.Format) == mq.Trim(mq.FormatRFHeader2) {
		decoded, err := m.codec.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("mapper: decode header: %w", err)
		}
		payload = decoded.Payload
		jms, _ = decoded.Folder(mqrfh2.FolderJMS)
		if usr, ok := decoded.Folder(mqrfh2.FolderUSR); ok {
			for _, e := range usr.Elements {
				msg.SetProperty(e.Name, e.Value)
			}
		}
	}
	msg.Text = string(payload)

	if dst, ok := jms.Lookup(leafDestination); ok {
		msg.Destination = mq.Trim(dst.Value)
	}
	if exp, ok := jms.Lookup(leafExpiration); ok {
		v, err := strconv.ParseInt(mq.Trim(exp.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidField, leafExpiration, exp.Value)
		}
		msg.Expiration = v
	}
	if cid, ok := jms.Lookup(leafCorrelation); ok {
		msg.CorrelationID = cid.Value
	} else if !mq.IsZeroID(md.CorrelID) {
		msg.CorrelationID = FormatID(md.CorrelID)
	}

	switch md.Persistence {
	case mq.PersistenceNotPersistent:
		msg.DeliveryMode = contracts.DeliveryModeNonPersistent
	case mq.PersistencePersistent, mq.PersistenceAsQueueDef:
		msg.DeliveryMode = contracts.DeliveryModePersistent
	default:
		return nil, fmt.Errorf("%w: %d", contracts.ErrUnknownPersistence, md.Persistence)
	}

	if !mq.Blank(md.ReplyToQ) {
		msg.ReplyTo = FormatReplyTo(mq.Trim(md.ReplyToQMgr), mq.Trim(md.ReplyToQ))
	}

	if md.Priority >= 0 {
		msg.Priority = int(md.Priority)
	} else if pri, ok := jms.Lookup(leafPriority); ok {
		if v, err := strconv.Atoi(mq.Trim(pri.Value)); err == nil {
			msg.Priority = v
		}
	}

	if !mq.IsZeroID(md.MsgID) {
		msg.MessageID = FormatID(md.MsgID)
	}
	msg.Timestamp = m.timestamp(md, jms)
	msg.Redelivered = md.BackoutCount > 0

	setProviderProperties(msg, md)
	return msg, nil
}

// timestamp prefers the put date and time, falling back to the jms folder
// for messages that never went through a put.
func (m *Mapper) timestamp(md *mq.Descriptor, jms mqrfh2.Folder) int64 {
	if !mq.Blank(md.PutDate) && !mq.Blank(md.PutTime) {
		ts, err := Timestamp(md.PutDate, md.PutTime)
		if err == nil {
			return ts
		}
		m.logger.Warn("unparseable put date and time", "putDate", md.PutDate, "putTime", md.PutTime, "error", err)
	}
	if tms, ok := jms.Lookup(leafTimestamp); ok {
		if v, err := strconv.ParseInt(mq.Trim(tms.Value), 10, 64); err == nil {
			return v
		}
	}
	return 0
}

func setProviderProperties(msg *contracts.TextMessage, md *mq.Descriptor) {
	msg.SetProperty(contracts.PropUserID, mq.Trim(md.UserIdentifier))
	msg.SetProperty(contracts.PropAppID, mq.Trim(md.PutApplName))
	msg.SetProperty(contracts.PropDeliveryCount, int64(md.BackoutCount))

	if !mq.IsZeroID(md.GroupID) || md.MsgFlags&mq.MsgFlagMsgInGroup != 0 {
		msg.SetProperty(contracts.PropGroupID, groupIDString(md.GroupID))
		msg.SetProperty(contracts.PropGroupSeq, int64(md.MsgSeqNumber))
	}

	for name, bit := range reportBits {
		if v := md.Report & bit; v != 0 {
			msg.SetProperty(name, int64(v))
		}
	}

	msg.SetProperty(contracts.PropMsgType, int64(md.MsgType))
	msg.SetProperty(contracts.PropFeedback, int64(md.Feedback))
	msg.SetProperty(contracts.PropFormat, mq.Trim(md.Format))
	msg.SetProperty(contracts.PropPutApplType, int64(md.PutApplType))
	msg.SetProperty(contracts.PropPutDate, mq.Trim(md.PutDate))
	msg.SetProperty(contracts.PropPutTime, mq.Trim(md.PutTime))

	if md.MsgFlags&mq.MsgFlagLastInGroup != 0 {
		msg.SetProperty(contracts.PropLastMsgInGroup, int64(mq.MsgFlagLastInGroup))
	}
}

// ApplyPutResult copies the fields assigned by a successful put onto the
// caller's message. now must be the instant passed to ToWire.
func (m *Mapper) ApplyPutResult(msg *contracts.TextMessage, md *mq.Descriptor, now time.Time) {
	nowMillis := now.UnixMilli()

	if !mq.IsZeroID(md.MsgID) {
		msg.MessageID = FormatID(md.MsgID)
	}
	if md.Priority >= 0 {
		msg.Priority = int(md.Priority)
	}
	if !mq.IsZeroID(md.CorrelID) {
		msg.CorrelationID = FormatID(md.CorrelID)
	}
	msg.SetProperty(contracts.PropUserID, mq.Trim(md.UserIdentifier))
	msg.SetProperty(contracts.PropAppID, mq.Trim(md.PutApplName))

	if !mq.Blank(md.PutDate) && !mq.Blank(md.PutTime) {
		msg.SetProperty(contracts.PropPutDate, mq.Trim(md.PutDate))
		msg.SetProperty(contracts.PropPutTime, mq.Trim(md.PutTime))
		ts, err := Timestamp(md.PutDate, md.PutTime)
		if err != nil {
			m.logger.Warn("unparseable put date and time", "putDate", md.PutDate, "putTime", md.PutTime, "error", err)
			ts = nowMillis
		}
		msg.Timestamp = ts
	} else {
		m.logger.Warn("put returned no put date and time", "messageId", msg.MessageID)
		msg.Timestamp = nowMillis
	}

	if msg.Expiration > 0 {
		msg.Expiration += nowMillis
	}
}
