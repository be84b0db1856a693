package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFeatureDisabled indicates a skill ref that needs a capability this
// build does not enable.
var ErrFeatureDisabled = errors.New("feature disabled")

// FetchURL fetches a URL-backed skill body. It is nil unless the HTTP
// capability is enabled; while it is nil, Url refs fail with
// ErrFeatureDisabled. Tests may install a fake.
var FetchURL func(url string) (string, error)

// ResolvedSkill is a skill ref resolved to a name and body.
type ResolvedSkill struct {
	Name    string
	Content string
}

// ResolveSkill turns one skill ref into its (name, content) pair.
//
//   - Name: the tag itself is the body.
//   - Inline: body is the text, name is "inline".
//   - File: read relative to the workgraph root; "~/" expands against the
//     caller's home; absolute paths are used verbatim. Name is the stem.
//   - Url: fetched when the HTTP capability is enabled, otherwise a
//     feature-gate error.
func ResolveSkill(ref SkillRef, workgraphRoot string) (ResolvedSkill, error) {
	switch ref.Kind {
	case SkillName:
		return ResolvedSkill{Name: ref.Value, Content: ref.Value}, nil

	case SkillInline:
		return ResolvedSkill{Name: "inline", Content: ref.Value}, nil

	case SkillFile:
		path := ref.Value
		switch {
		case strings.HasPrefix(path, "~/"):
			home := os.Getenv("HOME")
			if home == "" {
				return ResolvedSkill{}, fmt.Errorf("cannot expand %q: HOME not set", path)
			}
			path = filepath.Join(home, path[2:])
		case !filepath.IsAbs(path):
			path = filepath.Join(workgraphRoot, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ResolvedSkill{}, fmt.Errorf("failed to read skill file %s: %w", path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return ResolvedSkill{Name: stem, Content: string(data)}, nil

	case SkillURL:
		if FetchURL == nil {
			return ResolvedSkill{}, fmt.Errorf("%w: URL skills require the HTTP capability", ErrFeatureDisabled)
		}
		body, err := FetchURL(ref.Value)
		if err != nil {
			return ResolvedSkill{}, fmt.Errorf("fetching skill %s: %w", ref.Value, err)
		}
		return ResolvedSkill{Name: ref.Value, Content: body}, nil
	}
	return ResolvedSkill{}, fmt.Errorf("unknown skill ref kind %q", ref.Kind)
}

// ResolveAllSkills resolves every ref it can, preserving input order.
// Failures are silently dropped; callers wanting errors use ResolveSkill.
func ResolveAllSkills(refs []SkillRef, workgraphRoot string) []ResolvedSkill {
	var out []ResolvedSkill
	for _, ref := range refs {
		if resolved, err := ResolveSkill(ref, workgraphRoot); err == nil {
			out = append(out, resolved)
		}
	}
	return out
}
