package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	jsoniter "github.com/json-iterator/go"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/health"
	"github.com/glimte/mmate-jms-go/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Colors
var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(18)

	folderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	statusHealthyStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Bold(true)

	statusWarningStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Bold(true)
)

type printer struct {
	w    io.Writer
	json bool
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) render(blocks ...string) error {
	_, err := fmt.Fprintln(p.w, lipgloss.JoinVertical(lipgloss.Left, blocks...))
	return err
}

func field(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
}

func card(title string, lines ...string) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(title)}, lines...)...))
}

func statusStyle(s health.Status) lipgloss.Style {
	switch s {
	case health.StatusHealthy:
		return statusHealthyStyle
	case health.StatusDegraded:
		return statusWarningStyle
	default:
		return statusErrorStyle
	}
}

type messageView struct {
	MessageID     string         `json:"message_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Destination   string         `json:"destination,omitempty"`
	ReplyTo       string         `json:"reply_to,omitempty"`
	DeliveryMode  string         `json:"delivery_mode"`
	Priority      int            `json:"priority,omitempty"`
	Expiration    int64          `json:"expiration,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
	Redelivered   bool           `json:"redelivered,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
	Text          string         `json:"text"`
}

func newMessageView(msg *contracts.TextMessage) messageView {
	v := messageView{
		MessageID:     msg.MessageID,
		CorrelationID: msg.CorrelationID,
		Destination:   msg.Destination,
		ReplyTo:       msg.ReplyTo,
		DeliveryMode:  msg.DeliveryMode.String(),
		Priority:      msg.Priority,
		Expiration:    msg.Expiration,
		Redelivered:   msg.Redelivered,
		Properties:    msg.Properties,
		Text:          msg.Text,
	}
	if msg.Timestamp > 0 {
		v.Timestamp = time.UnixMilli(msg.Timestamp).UTC().Format(time.RFC3339Nano)
	}
	return v
}

func (p *printer) message(title string, msg *contracts.TextMessage) error {
	v := newMessageView(msg)
	if p.json {
		return p.encode(v)
	}

	lines := []string{
		field("JMSMessageID", v.MessageID),
		field("JMSDestination", v.Destination),
		field("JMSDeliveryMode", v.DeliveryMode),
	}
	optional := []struct {
		label string
		value string
	}{
		{"JMSCorrelationID", v.CorrelationID},
		{"JMSReplyTo", v.ReplyTo},
		{"JMSTimestamp", v.Timestamp},
	}
	for _, o := range optional {
		if o.value != "" {
			lines = append(lines, field(o.label, o.value))
		}
	}
	if v.Priority > 0 {
		lines = append(lines, field("JMSPriority", v.Priority))
	}
	if v.Expiration > 0 {
		lines = append(lines, field("JMSExpiration", v.Expiration))
	}
	if v.Redelivered {
		lines = append(lines, field("JMSRedelivered", true))
	}
	for _, name := range slices.Sorted(maps.Keys(v.Properties)) {
		lines = append(lines, field(name, contracts.PropertyString(v.Properties[name])))
	}
	if v.Text != "" {
		lines = append(lines, "", v.Text)
	}
	return p.render(card(title, lines...))
}

func (p *printer) dump(d *wireDump) error {
	if p.json {
		return p.encode(d)
	}

	var blocks []string
	if d.Prefix != nil {
		blocks = append(blocks, card("RFH2 header",
			field("StrucId", d.Prefix.StrucID),
			field("Version", d.Prefix.Version),
			field("StrucLength", d.Prefix.Length),
			field("Encoding", d.Prefix.Encoding),
			field("CodedCharSetId", d.Prefix.CodedCharSetID),
			field("Format", strings.TrimSpace(d.Prefix.Format)),
			field("Flags", d.Prefix.Flags),
			field("NameValueCCSID", d.Prefix.NameValueCCSID),
		))
	}
	for _, f := range d.Folders {
		title := folderStyle.Render(f.Name)
		if !f.Recognised {
			title += " " + statusWarningStyle.Render("(ignored)")
		}
		lines := []string{title}
		for _, e := range f.Elements {
			value := e.Value
			if e.Nil {
				value = "<nil>"
			}
			lines = append(lines, field(e.Name, value))
		}
		blocks = append(blocks, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	blocks = append(blocks, card("Payload", d.Payload))
	return p.render(blocks...)
}

type infoView struct {
	Connection string        `json:"connection"`
	State      string        `json:"state"`
	NeedsMCD   bool          `json:"needs_mcd"`
	Health     health.Report `json:"health"`
}

func (p *printer) info(v infoView) error {
	if p.json {
		return p.encode(v)
	}

	blocks := []string{card("Connection factory",
		field("Connection", v.Connection),
		field("State", v.State),
		field("Needs mcd", v.NeedsMCD),
		field("Health", statusStyle(v.Health.Status).Render(string(v.Health.Status))),
	)}
	for _, c := range v.Health.Checks {
		lines := []string{
			field("Status", statusStyle(c.Status).Render(string(c.Status))),
			field("Message", c.Message),
			field("Duration", c.Duration.Round(time.Microsecond)),
		}
		if c.Error != "" {
			lines = append(lines, field("Error", statusErrorStyle.Render(c.Error)))
		}
		for _, k := range slices.Sorted(maps.Keys(c.Details)) {
			lines = append(lines, field(k, c.Details[k]))
		}
		blocks = append(blocks, card(c.Name, lines...))
	}
	return p.render(blocks...)
}

func (p *printer) stats(s monitor.MetricsSummary) error {
	if p.json {
		return p.encode(s)
	}

	var lines []string
	for _, op := range slices.Sorted(maps.Keys(s.ProcessingStats)) {
		ps := s.ProcessingStats[op]
		lines = append(lines, field(op, fmt.Sprintf("n=%d ok=%d avg=%s p95=%s max=%s",
			ps.Count, s.MessageCounts[op], ps.Avg, ps.P95, ps.Max)))
		for _, kind := range slices.Sorted(maps.Keys(s.ErrorCounts[op])) {
			lines = append(lines, field("", statusErrorStyle.Render(fmt.Sprintf("%s: %d", kind, s.ErrorCounts[op][kind]))))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "no operations")
	}
	return p.render(card("Statistics", lines...))
}
