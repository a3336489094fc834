package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"DivergenceSentinel/internal/model"
)

// ConsoleSink prints alerts to a terminal and optionally rings the bell.
type ConsoleSink struct {
	mu   sync.Mutex
	out  io.Writer
	bell bool
}

// NewConsoleSink writes to w, or stdout when w is nil.
func NewConsoleSink(w io.Writer, bell bool) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{out: w, bell: bell}
}

func (c *ConsoleSink) Name() string { return "console" }

func (c *ConsoleSink) Notify(_ context.Context, ev model.AlertEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := FormatAlertLine(ev)
	if ev.Kind.Bullish() {
		line = text.FgGreen.Sprint(line)
	} else {
		line = text.FgRed.Sprint(line)
	}
	if c.bell {
		line += "\a"
	}
	_, err := fmt.Fprintln(c.out, line)
	return err
}

// RenderDashboard writes the live status table followed by recent alerts.
func RenderDashboard(w io.Writer, statuses []model.InstrumentStatus, recent []model.AlertEvent, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("RSI Divergence Monitor | %s", now.Format("2006-01-02 15:04:05"))
	t.AppendHeader(table.Row{"Instrument", "TF", "Live", "Close", "RSI", "Zone", "Active", "Updated", "Error"})
	for _, s := range statuses {
		active := make([]string, 0, len(s.Active))
		for _, k := range s.Active {
			label := k.Label()
			if n, ok := s.Counts[k]; ok {
				label = fmt.Sprintf("%s (%d)", label, n)
			}
			active = append(active, label)
		}
		activeCol := strings.Join(active, "\n")
		switch s.Bias() {
		case "bullish":
			activeCol = text.FgGreen.Sprint(activeCol)
		case "bearish":
			activeCol = text.FgRed.Sprint(activeCol)
		}
		live := "-"
		if s.LivePrice > 0 {
			live = FormatPrice(s.LivePrice)
		}
		updated := "-"
		if !s.LastCycleAt.IsZero() {
			updated = s.LastCycleAt.Local().Format("15:04:05")
		}
		t.AppendRow(table.Row{
			s.Symbol, s.Timeframe, live, FormatPrice(s.LastClose),
			fmt.Sprintf("%.2f", s.Oscillator), string(s.Zone), activeCol, updated, s.LastError,
		})
	}
	t.Render()

	if len(recent) == 0 {
		return
	}
	h := table.NewWriter()
	h.SetOutputMirror(w)
	h.SetStyle(table.StyleLight)
	h.SetTitle("Recent alerts")
	h.AppendHeader(table.Row{"Time", "Instrument", "Kind", "Price", "RSI"})
	for _, ev := range recent {
		h.AppendRow(table.Row{
			ev.Timestamp.Local().Format("01-02 15:04:05"), ev.Instrument + "@" + ev.Timeframe,
			ev.Kind.Label(), FormatPrice(ev.ReferencePrice), fmt.Sprintf("%.2f", ev.Oscillator),
		})
	}
	h.Render()
}
