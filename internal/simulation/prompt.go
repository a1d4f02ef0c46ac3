package simulation

import (
	"fmt"
	"strings"
)

// Instruction is the fixed role given to the model.
const Instruction = `You are a Life Decision Simulation Engine.
Your role is NOT to validate the user or make them feel good.
Your role is to SIMULATE realistic future outcomes based on behavioral economics, psychology, risk analysis, and compounding effects.

Rules:
- Be realistic, borderline cynical. Avoid optimism bias.
- Highlight compounding effects (debt, bad habits, lost time) and irreversible consequences.
- Simulate outcomes at 1, 3, 5, and 10 years.
- Explain WHY outcomes happen.
- If inputs are vague, make logical probabilistic assumptions and list them.
- Return RAW JSON data only.`

// Temperature keeps the forecast grounded.
const Temperature float32 = 0.4

// BuildPrompt interpolates the five input fields verbatim.
func BuildPrompt(in UserInput) string {
	var b strings.Builder
	b.WriteString("User Profile:\n")
	fmt.Fprintf(&b, "- Age: %d\n", in.CurrentAge)
	fmt.Fprintf(&b, "- Decision to Simulate: %s\n", in.Decision)
	fmt.Fprintf(&b, "- Current Context/Status: %s\n", in.CurrentStatus)
	fmt.Fprintf(&b, "- Risk Tolerance: %s\n", in.RiskTolerance)
	fmt.Fprintf(&b, "- Stated Goals: %s\n", in.Goals)
	b.WriteString("\nSimulate the trajectory of this life decision.")
	return b.String()
}
