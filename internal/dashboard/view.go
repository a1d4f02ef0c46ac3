// Package dashboard maps a forecast to its presentation. Every function here is a pure
// mapping: nothing is filtered, sorted or aggregated.
package dashboard

import (
	"fmt"

	"lifesim/internal/simulation"
)

const Disclaimer = "DISCLAIMER: This is a simulation based on LLM probabilistic generation. Not financial, medical, or legal advice. Use at your own risk."

// Series is one line of the trajectory chart.
type Series struct {
	Key    string
	Name   string
	Color  string
	Dashed bool
	Values []int
}

// Chart has one x point per timeline entry.
type Chart struct {
	Years  []int
	Series []Series
}

// XLabels returns the axis labels, "Year N".
func (c Chart) XLabels() []string {
	out := make([]string, len(c.Years))
	for i, y := range c.Years {
		out[i] = fmt.Sprintf("Year %d", y)
	}
	return out
}

type Card struct {
	Year        int
	Label       string
	Narrative   string
	HiddenRisks []string
	Scores      []Score
}

type Score struct {
	Name  string
	Value int
}

type View struct {
	Assumptions         []string
	Chart               Chart
	Cards               []Card
	BestCase            string
	WorstCase           string
	KeyForks            []simulation.KeyFork
	BrutalTruths        []string
	AlternativeStrategy string
}

// Series order and colours follow the dashboard legend.
var seriesDefs = []struct {
	key, name, color string
	dashed           bool
	value            func(simulation.TimelinePoint) int
}{
	{"financialStability", "Financial Health", "#22d3ee", false, func(p simulation.TimelinePoint) int { return p.FinancialStability }},
	{"mentalHealth", "Mental Health", "#10b981", false, func(p simulation.TimelinePoint) int { return p.MentalHealth }},
	{"regretProbability", "Regret Probability", "#f43f5e", false, func(p simulation.TimelinePoint) int { return p.RegretProbability }},
	{"relationships", "Relationships", "#a78bfa", true, func(p simulation.TimelinePoint) int { return p.Relationships }},
}

// Build maps a result to its dashboard view.
func Build(res simulation.Result) View {
	v := View{
		Assumptions:         res.Assumptions,
		BestCase:            res.BestCase,
		WorstCase:           res.WorstCase,
		KeyForks:            res.KeyForks,
		BrutalTruths:        res.BrutalTruths,
		AlternativeStrategy: res.AlternativeStrategy,
		Cards:               make([]Card, 0, len(res.Timeline)),
	}

	v.Chart.Years = make([]int, len(res.Timeline))
	for i, p := range res.Timeline {
		v.Chart.Years[i] = p.Year
	}
	for _, d := range seriesDefs {
		s := Series{Key: d.key, Name: d.name, Color: d.color, Dashed: d.dashed, Values: make([]int, len(res.Timeline))}
		for i, p := range res.Timeline {
			s.Values[i] = d.value(p)
		}
		v.Chart.Series = append(v.Chart.Series, s)
	}

	for _, p := range res.Timeline {
		c := Card{Year: p.Year, Label: p.Label, Narrative: p.Narrative, HiddenRisks: p.HiddenRisks}
		for _, d := range seriesDefs {
			c.Scores = append(c.Scores, Score{Name: d.name, Value: d.value(p)})
		}
		v.Cards = append(v.Cards, c)
	}
	return v
}
