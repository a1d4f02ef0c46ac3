package simulation

import "lifesim/internal/llm"

const schemaName = "life_simulation"

var (
	topLevelRequired = []string{"assumptions", "timeline", "keyForks", "bestCase", "worstCase", "brutalTruths", "alternativeStrategy"}
	timelineRequired = []string{"year", "label", "financialStability", "mentalHealth", "relationships", "regretProbability", "narrative", "hiddenRisks"}
)

func stringList(desc string) *llm.Schema {
	return &llm.Schema{Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}, Description: desc}
}

// ResponseSchema declares the shape of Result to the provider.
func ResponseSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"assumptions": stringList("List of assumptions made about the user's missing data or context."),
			"timeline": {
				Type:        llm.TypeArray,
				Description: "Simulation outcomes at 1, 3, 5, and 10 years.",
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"year":               {Type: llm.TypeInteger, Description: "The year offset (1, 3, 5, or 10)"},
						"label":              {Type: llm.TypeString, Description: "Short title for this phase (e.g., 'The Honeymoon Phase')"},
						"financialStability": {Type: llm.TypeInteger, Description: "Score 0-100"},
						"mentalHealth":       {Type: llm.TypeInteger, Description: "Score 0-100"},
						"relationships":      {Type: llm.TypeInteger, Description: "Score 0-100"},
						"regretProbability":  {Type: llm.TypeInteger, Description: "Score 0-100"},
						"narrative":          {Type: llm.TypeString, Description: "Detailed description of life at this stage. Explain WHY."},
						"hiddenRisks":        stringList("Unexpected risks that emerge here."),
					},
					Required: timelineRequired,
				},
			},
			"keyForks": {
				Type:        llm.TypeArray,
				Description: "Critical turning points or irreversible forks in the road.",
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"decisionPoint": {Type: llm.TypeString},
						"implication":   {Type: llm.TypeString},
					},
				},
			},
			"bestCase":            {Type: llm.TypeString, Description: "Realistic best outcome."},
			"worstCase":           {Type: llm.TypeString, Description: "Realistic worst outcome."},
			"brutalTruths":        stringList("Harsh realities the user might be ignoring."),
			"alternativeStrategy": {Type: llm.TypeString, Description: "A counter-intuitive alternative path they should consider."},
		},
		Required: topLevelRequired,
	}
}
