package dashboard

import (
	"fmt"
	"html"
	"strings"
)

// markup abstracts the two text renderings: plain text and Telegram HTML.
type markup struct {
	bold   func(string) string
	italic func(string) string
	escape func(string) string
}

var (
	plain = markup{
		bold:   strings.ToUpper,
		italic: func(s string) string { return s },
		escape: func(s string) string { return s },
	}
	telegramHTML = markup{
		bold:   func(s string) string { return "<b>" + s + "</b>" },
		italic: func(s string) string { return "<i>" + s + "</i>" },
		escape: html.EscapeString,
	}
)

// FormatText renders the view as plain text.
func FormatText(v View) string { return format(v, plain) }

// FormatHTML renders the view with the HTML subset Telegram accepts.
func FormatHTML(v View) string { return format(v, telegramHTML) }

func format(v View, m markup) string {
	var b strings.Builder
	section := func(title string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.bold(m.escape(title)))
		b.WriteString("\n")
	}
	bullets := func(items []string) {
		for _, it := range items {
			b.WriteString("• ")
			b.WriteString(m.escape(it))
			b.WriteString("\n")
		}
	}

	section("Simulation Assumptions")
	bullets(v.Assumptions)

	section("Life Trajectory Analysis")
	for i, label := range v.Chart.XLabels() {
		parts := make([]string, 0, len(v.Chart.Series))
		for _, s := range v.Chart.Series {
			parts = append(parts, fmt.Sprintf("%s %d", s.Name, s.Values[i]))
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.escape(strings.Join(parts, " · ")))
	}

	for _, c := range v.Cards {
		section(fmt.Sprintf("Year %d — %s", c.Year, c.Label))
		b.WriteString(m.escape(c.Narrative))
		b.WriteString("\n")
		if len(c.HiddenRisks) > 0 {
			b.WriteString(m.italic("Hidden risks:"))
			b.WriteString("\n")
			bullets(c.HiddenRisks)
		}
	}

	section("Best Case")
	b.WriteString(m.escape(v.BestCase))
	b.WriteString("\n")
	section("Worst Case")
	b.WriteString(m.escape(v.WorstCase))
	b.WriteString("\n")

	section("Critical Forks")
	for i, f := range v.KeyForks {
		fmt.Fprintf(&b, "%d. %s → %s\n", i+1, m.escape(f.DecisionPoint), m.escape(f.Implication))
	}

	section("Brutal Truths")
	bullets(v.BrutalTruths)

	section("Alternative Strategy")
	b.WriteString(m.escape(v.AlternativeStrategy))
	b.WriteString("\n\n")
	b.WriteString(m.italic(m.escape(Disclaimer)))
	return b.String()
}
