package identity

import (
	"strings"
	"testing"
)

func TestRenderIdentityPrompt(t *testing.T) {
	role := testRole()
	objective := testObjective()
	skills := []ResolvedSkill{
		{Name: "go", Content: "go"},
		{Name: "style", Content: "Match the house style."},
	}

	prompt := RenderIdentityPrompt(role, objective, skills)

	for _, want := range []string{
		"# Role: Implementer",
		"## Skills",
		"### go",
		"### style",
		"Match the house style.",
		"## Desired Outcome",
		"Working, tested code",
		"## Objective: Quality First",
		"- Slower delivery",
		"- Skipping tests",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Skills must come before the desired outcome section.
	if strings.Index(prompt, "## Skills") > strings.Index(prompt, "## Desired Outcome") {
		t.Fatal("section order wrong")
	}
}

func TestRenderIdentityPromptOmitsEmptySkills(t *testing.T) {
	prompt := RenderIdentityPrompt(testRole(), testObjective(), nil)
	if strings.Contains(prompt, "## Skills") {
		t.Fatal("empty skill list must omit the Skills block")
	}
}
