package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"DivergenceSentinel/internal/model"
)

func kindIcon(k model.AlertKind) string {
	if k.Bullish() {
		return "🟢"
	}
	return "🔴"
}

// FormatPrice prints prices with precision suited to their magnitude.
func FormatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.6f", p)
	}
}

func occurrence(ev model.AlertEvent) string {
	if ev.Cap > 0 {
		return fmt.Sprintf(" (%d/%d)", ev.Occurrence, ev.Cap)
	}
	return ""
}

// FormatAlertLine renders an event as a single plain-text line.
func FormatAlertLine(ev model.AlertEvent) string {
	line := fmt.Sprintf("[%s] %s %s %s @ %s | RSI %.2f%s",
		ev.Timestamp.Local().Format("15:04:05"), kindIcon(ev.Kind), ev.Kind.Label(),
		ev.Instrument+"@"+ev.Timeframe, FormatPrice(ev.ReferencePrice), ev.Oscillator, occurrence(ev))
	if lv := ev.Levels; lv != nil {
		line += fmt.Sprintf(" | SL %s TP %s", FormatPrice(lv.Stop), FormatPrice(lv.Target1))
		if lv.Target2 != 0 {
			line += " / " + FormatPrice(lv.Target2)
		}
	}
	return line
}

// FormatAlert formats an event as a Telegram HTML message.
func FormatAlert(ev model.AlertEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b>%s\n", kindIcon(ev.Kind), ev.Kind.Label(), occurrence(ev)))
	b.WriteString(fmt.Sprintf("%s · %s\n", html.EscapeString(ev.Instrument), html.EscapeString(ev.Timeframe)))
	b.WriteString(fmt.Sprintf("Price: <code>%s</code>\n", FormatPrice(ev.ReferencePrice)))
	b.WriteString(fmt.Sprintf("RSI: %.2f\n", ev.Oscillator))
	if lv := ev.Levels; lv != nil {
		b.WriteString(fmt.Sprintf("\n<b>Setup (%s)</b>\n", lv.Direction))
		b.WriteString(fmt.Sprintf("Stop: <code>%s</code>\n", FormatPrice(lv.Stop)))
		b.WriteString(fmt.Sprintf("Target 1: <code>%s</code>\n", FormatPrice(lv.Target1)))
		if lv.Target2 != 0 {
			b.WriteString(fmt.Sprintf("Target 2: <code>%s</code>\n", FormatPrice(lv.Target2)))
		}
	}
	b.WriteString(fmt.Sprintf("\n<i>%s</i>", ev.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")))
	return b.String()
}

// FormatStatus formats the status board for Telegram.
func FormatStatus(statuses []model.InstrumentStatus) string {
	if len(statuses) == 0 {
		return "No instruments monitored yet."
	}
	var b strings.Builder
	b.WriteString("📊 <b>DivergenceSentinel status</b>\n\n")
	for _, s := range statuses {
		bias := ""
		switch s.Bias() {
		case "bullish":
			bias = " | 🟢 BULLISH"
		case "bearish":
			bias = " | 🔴 BEARISH"
		}
		b.WriteString(fmt.Sprintf("<b>%s</b> %s: <code>%s</code>%s\n",
			html.EscapeString(s.Symbol), s.Timeframe, FormatPrice(displayPrice(s)), bias))
		b.WriteString(fmt.Sprintf("  RSI %.2f (%s)\n", s.Oscillator, s.Zone))
		if len(s.Active) > 0 {
			labels := make([]string, len(s.Active))
			for i, k := range s.Active {
				labels[i] = k.Label()
			}
			b.WriteString("  active: " + strings.Join(labels, ", ") + "\n")
		}
		if s.LastError != "" {
			b.WriteString(fmt.Sprintf("  ⚠️ %s\n", html.EscapeString(s.LastError)))
		}
	}
	return b.String()
}

// FormatRecentAlerts formats the most recent events, newest first.
func FormatRecentAlerts(events []model.AlertEvent) string {
	if len(events) == 0 {
		return "No alerts yet."
	}
	sorted := make([]model.AlertEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	var b strings.Builder
	b.WriteString("🔔 <b>Recent alerts</b>\n\n")
	for _, ev := range sorted {
		b.WriteString(fmt.Sprintf("%s %s %s %s @ <code>%s</code>\n",
			ev.Timestamp.UTC().Format("01-02 15:04"), kindIcon(ev.Kind),
			html.EscapeString(ev.Instrument), ev.Kind.Label(), FormatPrice(ev.ReferencePrice)))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/status - live prices and active conditions\n" +
		"/alerts - most recent alerts\n" +
		"/help - this message"
}

func displayPrice(s model.InstrumentStatus) float64 {
	if s.LivePrice > 0 {
		return s.LivePrice
	}
	return s.LastClose
}

// FormatErrorNotice is sent when an instrument starts failing.
func FormatErrorNotice(key string, err error, at time.Time) string {
	return fmt.Sprintf("⚠️ <b>%s</b> evaluation failing since %s\n<code>%s</code>",
		html.EscapeString(key), at.UTC().Format("15:04:05 MST"), html.EscapeString(err.Error()))
}

// FormatRecoveryNotice is sent when a failing instrument evaluates again.
func FormatRecoveryNotice(key string, failures int) string {
	return fmt.Sprintf("✅ <b>%s</b> recovered after %d consecutive failure(s)", html.EscapeString(key), failures)
}
