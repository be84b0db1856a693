package identity

import (
	"fmt"
	"strings"
)

// RenderIdentityPrompt concatenates the role, its resolved skills, and the
// objective's tradeoffs into the prompt block handed to a spawned agent.
// An empty skill list omits the Skills block entirely.
func RenderIdentityPrompt(role *Role, objective *Objective, skills []ResolvedSkill) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Role: %s\n\n%s\n", role.Name, role.Description)

	if len(skills) > 0 {
		b.WriteString("\n## Skills\n")
		for _, s := range skills {
			fmt.Fprintf(&b, "\n### %s\n%s\n", s.Name, s.Content)
		}
	}

	fmt.Fprintf(&b, "\n## Desired Outcome\n%s\n", role.DesiredOutcome)

	fmt.Fprintf(&b, "\n## Objective: %s\n\n%s\n", objective.Name, objective.Description)
	if len(objective.AcceptableTradeoffs) > 0 {
		b.WriteString("\nAcceptable tradeoffs:\n")
		for _, t := range objective.AcceptableTradeoffs {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	if len(objective.UnacceptableTradeoffs) > 0 {
		b.WriteString("\nUnacceptable tradeoffs:\n")
		for _, t := range objective.UnacceptableTradeoffs {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	return b.String()
}
