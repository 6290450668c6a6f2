// Package output formats CLI results as a table, JSON, or YAML: a
// Printer/Format pair with a tabwriter table mode and NO_COLOR
// handling, for the broker's own row types (topics, subscriptions,
// messages, metrics).
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kestrel-broker/kestrel/internal/domain"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatTable
	}
}

// Printer renders broker CLI results in the configured format.
type Printer struct {
	format  Format
	writer  io.Writer
	noColor bool
}

func NewPrinter(format Format) *Printer {
	return &Printer{
		format:  format,
		writer:  os.Stdout,
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

func (p *Printer) SetWriter(w io.Writer) { p.writer = w }

// Print renders data as JSON or YAML; callers needing a table use one of
// the PrintXxx helpers below instead.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(p.writer)
		enc.SetIndent(2)
		return enc.Encode(data)
	default:
		enc := json.NewEncoder(p.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

func (p *Printer) tableWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
}

const (
	bold  = "\033[1m"
	reset = "\033[0m"
)

func (p *Printer) bold(s string) string {
	if p.noColor {
		return s
	}
	return bold + s + reset
}

// PrintTopics renders a topic list.
func (p *Printer) PrintTopics(topics []*domain.Topic) error {
	if p.format != FormatTable {
		return p.Print(topics)
	}
	if len(topics) == 0 {
		fmt.Fprintln(p.writer, "No topics found")
		return nil
	}
	w := p.tableWriter()
	fmt.Fprintln(w, p.bold("ID\tCREATED_AT"))
	for _, t := range topics {
		fmt.Fprintf(w, "%s\t%s\n", t.ID, t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return w.Flush()
}

// PrintSubscriptions renders a subscription list with live state counts.
func (p *Printer) PrintSubscriptions(subs []*domain.Subscription) error {
	if p.format != FormatTable {
		return p.Print(subs)
	}
	if len(subs) == 0 {
		fmt.Fprintln(p.writer, "No subscriptions found")
		return nil
	}
	w := p.tableWriter()
	fmt.Fprintln(w, p.bold("ID\tTOPIC\tMAX_ATTEMPTS\tAVAILABLE\tDELIVERED\tACKED\tDLQ"))
	for _, s := range subs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.ID, s.TopicID, s.MaxDeliveryAttempts, s.Available, s.Delivered, s.Acked, s.DLQCount)
	}
	return w.Flush()
}

// PrintMessages renders a message batch (consume/DLQ results).
func (p *Printer) PrintMessages(msgs []*domain.Message) error {
	if p.format != FormatTable {
		return p.Print(msgs)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(p.writer, "No messages found")
		return nil
	}
	w := p.tableWriter()
	fmt.Fprintln(w, p.bold("ID\tSTATUS\tATTEMPTS\tAVAILABLE_AT\tPAYLOAD"))
	for _, m := range msgs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			m.ID, m.Status, m.DeliveryAttempts,
			m.AvailableAt.Format("2006-01-02T15:04:05Z07:00"), string(m.Payload))
	}
	return w.Flush()
}

// PrintMetrics renders one subscription's per-state counts.
func (p *Printer) PrintMetrics(m *domain.Metrics) error {
	if p.format != FormatTable {
		return p.Print(m)
	}
	w := p.tableWriter()
	fmt.Fprintln(w, p.bold("SUBSCRIPTION\tAVAILABLE\tDELIVERED\tACKED\tDLQ"))
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", m.SubscriptionID, m.Available, m.Delivered, m.Acked, m.DLQ)
	return w.Flush()
}
