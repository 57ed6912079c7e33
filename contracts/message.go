package contracts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// DeliveryMode is the JMS delivery mode of a message.
type DeliveryMode int

const (
	DeliveryModeNonPersistent DeliveryMode = 1
	DeliveryModePersistent    DeliveryMode = 2
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliveryModeNonPersistent:
		return "NON_PERSISTENT"
	case DeliveryModePersistent:
		return "PERSISTENT"
	default:
		return fmt.Sprintf("DeliveryMode(%d)", int(m))
	}
}

// Provider property names
const (
	PropGroupID        = "JMSXGroupID"
	PropGroupSeq       = "JMSXGroupSeq"
	PropUserID         = "JMSXUserID"
	PropAppID          = "JMSXAppID"
	PropDeliveryCount  = "JMSXDeliveryCount"
	PropFeedback       = "JMS_IBM_Feedback"
	PropLastMsgInGroup = "JMS_IBM_Last_Msg_In_Group"
	PropMsgType        = "JMS_IBM_MsgType"
	PropFormat         = "JMS_IBM_Format"
	PropPutApplType    = "JMS_IBM_PutApplType"
	PropPutDate        = "JMS_IBM_PutDate"
	PropPutTime        = "JMS_IBM_PutTime"

	PropReportException    = "JMS_IBM_Report_Exception"
	PropReportExpiration   = "JMS_IBM_Report_Expiration"
	PropReportCOA          = "JMS_IBM_Report_COA"
	PropReportCOD          = "JMS_IBM_Report_COD"
	PropReportPAN          = "JMS_IBM_Report_PAN"
	PropReportNAN          = "JMS_IBM_Report_NAN"
	PropReportPassMsgID    = "JMS_IBM_Report_Pass_Msg_ID"
	PropReportPassCorrelID = "JMS_IBM_Report_Pass_Correl_ID"
	PropReportDiscardMsg   = "JMS_IBM_Report_Discard_Msg"
)

// ReportProperties lists the nine report-option properties in a stable order.
var ReportProperties = []string{
	PropReportException,
	PropReportExpiration,
	PropReportCOA,
	PropReportCOD,
	PropReportPAN,
	PropReportNAN,
	PropReportPassMsgID,
	PropReportPassCorrelID,
	PropReportDiscardMsg,
}

var reservedProperties = map[string]struct{}{
	PropGroupID:        {},
	PropGroupSeq:       {},
	PropUserID:         {},
	PropAppID:          {},
	PropDeliveryCount:  {},
	PropFeedback:       {},
	PropLastMsgInGroup: {},
	PropMsgType:        {},
	PropFormat:         {},
	PropPutApplType:    {},
	PropPutDate:        {},
	PropPutTime:        {},
}

func init() {
	for _, name := range ReportProperties {
		reservedProperties[name] = struct{}{}
	}
}

// IsReservedProperty reports whether name is a provider property that never
// travels in the user folder.
func IsReservedProperty(name string) bool {
	_, ok := reservedProperties[name]
	return ok
}

// TextMessage is a JMS text message.
type TextMessage struct {
	Text string

	Destination   string
	DeliveryMode  DeliveryMode
	Priority      int // 0 means unset
	CorrelationID string
	ReplyTo       string
	Expiration    int64 // milliseconds, 0 means no expiration
	MessageID     string
	Timestamp     int64 // epoch milliseconds
	Redelivered   bool

	// Properties holds provider and user properties. Presence is significant:
	// an absent key is different from a zero value.
	Properties map[string]any
}

// NewTextMessage creates a persistent text message.
func NewTextMessage(text string) *TextMessage {
	return &TextMessage{
		Text:         text,
		DeliveryMode: DeliveryModePersistent,
		Properties:   make(map[string]any),
	}
}

// SetProperty sets a provider or user property.
func (m *TextMessage) SetProperty(name string, value any) {
	if m.Properties == nil {
		m.Properties = make(map[string]any)
	}
	m.Properties[name] = value
}

// Property returns a property and whether it is present.
func (m *TextMessage) Property(name string) (any, bool) {
	v, ok := m.Properties[name]
	return v, ok
}

// HasProperty reports whether a property is present.
func (m *TextMessage) HasProperty(name string) bool {
	_, ok := m.Properties[name]
	return ok
}

// RemoveProperty deletes a property.
func (m *TextMessage) RemoveProperty(name string) {
	delete(m.Properties, name)
}

// StringProperty returns the string form of a property.
func (m *TextMessage) StringProperty(name string) (string, bool) {
	v, ok := m.Properties[name]
	if !ok || v == nil {
		return "", false
	}
	return PropertyString(v), true
}

// IntProperty returns an integer property. String values are parsed.
func (m *TextMessage) IntProperty(name string) (int64, bool) {
	v, ok := m.Properties[name]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// UserPropertyNames returns the sorted names of all non-reserved properties.
func (m *TextMessage) UserPropertyNames() []string {
	names := make([]string, 0, len(m.Properties))
	for name, v := range m.Properties {
		if v == nil || IsReservedProperty(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *TextMessage) String() string {
	return fmt.Sprintf("TextMessage{id=%q destination=%q correlationId=%q deliveryMode=%v priority=%d expiration=%d timestamp=%d replyTo=%q redelivered=%v properties=%d text=%d bytes}",
		m.MessageID, m.Destination, m.CorrelationID, m.DeliveryMode, m.Priority,
		m.Expiration, m.Timestamp, m.ReplyTo, m.Redelivered, len(m.Properties), len(m.Text))
}

// PropertyString coerces a property value to its wire string form.
func PropertyString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
