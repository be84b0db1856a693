// Package identity provides the content-addressed store of roles,
// objectives, agents and rewards, plus skill resolution and identity
// prompt rendering.
//
// Entities reference each other by content-hash id, never by pointer;
// cross-references are resolved at read time via directory lookup.
package identity

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nikete/workgraph/internal/hash"
)

// SkillKind discriminates the SkillRef tagged union.
type SkillKind string

const (
	SkillName   SkillKind = "name"
	SkillFile   SkillKind = "file"
	SkillURL    SkillKind = "url"
	SkillInline SkillKind = "inline"
)

// SkillRef names a skill a role carries: a bare tag, a file path, a URL,
// or inline text. It serializes as a single-key YAML map, with a bare
// scalar accepted as shorthand for a Name ref.
type SkillRef struct {
	Kind  SkillKind
	Value string
}

// NameSkill builds a tag-only skill ref.
func NameSkill(n string) SkillRef { return SkillRef{Kind: SkillName, Value: n} }

// FileSkill builds a file-backed skill ref.
func FileSkill(p string) SkillRef { return SkillRef{Kind: SkillFile, Value: p} }

// URLSkill builds a URL-backed skill ref.
func URLSkill(u string) SkillRef { return SkillRef{Kind: SkillURL, Value: u} }

// InlineSkill builds an inline-text skill ref.
func InlineSkill(text string) SkillRef { return SkillRef{Kind: SkillInline, Value: text} }

// MarshalYAML emits the single-key map form, e.g. {name: rust}.
func (s SkillRef) MarshalYAML() (any, error) {
	if s.Kind == "" {
		return nil, fmt.Errorf("skill ref has no kind")
	}
	return map[string]string{string(s.Kind): s.Value}, nil
}

// UnmarshalYAML accepts either a bare scalar (a Name ref) or the
// single-key map form.
func (s *SkillRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Kind = SkillName
		return node.Decode(&s.Value)
	}
	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return fmt.Errorf("parsing skill ref: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("skill ref must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		switch SkillKind(k) {
		case SkillName, SkillFile, SkillURL, SkillInline:
			s.Kind = SkillKind(k)
			s.Value = v
		default:
			return fmt.Errorf("unknown skill ref kind %q", k)
		}
	}
	return nil
}

// String renders the ref for display.
func (s SkillRef) String() string {
	switch s.Kind {
	case SkillName:
		return s.Value + " (tag)"
	case SkillFile:
		return "file: " + s.Value
	case SkillURL:
		return "url: " + s.Value
	case SkillInline:
		preview := s.Value
		if len(preview) > 60 {
			return "inline: " + preview[:60] + "..."
		}
		return "inline: " + preview
	}
	return s.Value
}

// RewardRef is a lightweight pointer to a recorded reward, embedded in a
// RewardHistory.
type RewardRef struct {
	RewardID  string  `yaml:"reward_id" json:"reward_id"`
	TaskID    string  `yaml:"task_id" json:"task_id"`
	Value     float64 `yaml:"value" json:"value"`
	Timestamp string  `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
}

// RewardHistory aggregates the rewards recorded against an entity.
type RewardHistory struct {
	TaskCount  int         `yaml:"task_count" json:"task_count"`
	MeanReward *float64    `yaml:"mean_reward,omitempty" json:"mean_reward,omitempty"`
	Rewards    []RewardRef `yaml:"rewards,omitempty" json:"rewards,omitempty"`
}

// Add folds one reward value into the history.
func (h *RewardHistory) Add(ref RewardRef) {
	h.Rewards = append(h.Rewards, ref)
	h.TaskCount++
	total := 0.0
	for _, r := range h.Rewards {
		total += r.Value
	}
	mean := total / float64(len(h.Rewards))
	h.MeanReward = &mean
}

// Lineage records where an entity came from.
type Lineage struct {
	Parents    []string `yaml:"parents,omitempty" json:"parents,omitempty"`
	Generation int      `yaml:"generation,omitempty" json:"generation,omitempty"`
	CreatedBy  string   `yaml:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt  string   `yaml:"created_at,omitempty" json:"created_at,omitempty"`
}

// TrustLevel grades an agent's standing.
type TrustLevel string

const (
	TrustProvisional TrustLevel = "provisional"
	TrustTrusted     TrustLevel = "trusted"
	TrustVerified    TrustLevel = "verified"
)

// Role is a content-addressed description of what an agent does.
// The id covers skills, desired_outcome and description; name is mutable.
type Role struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	Skills         []SkillRef    `yaml:"skills,omitempty"`
	DesiredOutcome string        `yaml:"desired_outcome"`
	Performance    RewardHistory `yaml:"performance"`
	Lineage        Lineage       `yaml:"lineage,omitempty"`
}

// Objective is a content-addressed description of what an agent optimizes
// for. The id covers description and both tradeoff lists; name is mutable.
type Objective struct {
	ID                    string        `yaml:"id"`
	Name                  string        `yaml:"name"`
	Description           string        `yaml:"description"`
	AcceptableTradeoffs   []string      `yaml:"acceptable_tradeoffs,omitempty"`
	UnacceptableTradeoffs []string      `yaml:"unacceptable_tradeoffs,omitempty"`
	Performance           RewardHistory `yaml:"performance"`
	Lineage               Lineage       `yaml:"lineage,omitempty"`
}

// Agent is the content-addressed pairing of a role and an objective.
// Exactly one agent file exists per (role, objective) pair per store.
type Agent struct {
	ID           string        `yaml:"id"`
	RoleID       string        `yaml:"role_id"`
	ObjectiveID  string        `yaml:"objective_id"`
	Name         string        `yaml:"name"`
	Performance  RewardHistory `yaml:"performance"`
	Lineage      Lineage       `yaml:"lineage,omitempty"`
	Capabilities []string      `yaml:"capabilities,omitempty"`
	Rate         *float64      `yaml:"rate,omitempty"`
	Capacity     *int          `yaml:"capacity,omitempty"`
	TrustLevel   TrustLevel    `yaml:"trust_level,omitempty"`
	Contact      string        `yaml:"contact,omitempty"`
	Executor     string        `yaml:"executor,omitempty"`
}

// Reward is a scored evaluation of a task execution, attached to the
// referenced role, objective and (optionally) agent.
type Reward struct {
	ID          string             `yaml:"id" json:"id"`
	TaskID      string             `yaml:"task_id" json:"task_id"`
	AgentID     string             `yaml:"agent_id,omitempty" json:"agent_id,omitempty"`
	RoleID      string             `yaml:"role_id" json:"role_id"`
	ObjectiveID string             `yaml:"objective_id" json:"objective_id"`
	Value       float64            `yaml:"value" json:"value"`
	Dimensions  map[string]float64 `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Notes       string             `yaml:"notes,omitempty" json:"notes,omitempty"`
	Evaluator   string             `yaml:"evaluator,omitempty" json:"evaluator,omitempty"`
	Timestamp   string             `yaml:"timestamp" json:"timestamp"`
	Model       string             `yaml:"model,omitempty" json:"model,omitempty"`
	Source      string             `yaml:"source,omitempty" json:"source,omitempty"`
}

// HashRole computes a role's content id from its immutable fields.
func HashRole(skills []SkillRef, desiredOutcome, description string) string {
	fields := make([]string, 0, len(skills)+2)
	for _, s := range skills {
		fields = append(fields, string(s.Kind)+":"+s.Value)
	}
	fields = append(fields, desiredOutcome, description)
	return hash.Content("role", fields...)
}

// HashObjective computes an objective's content id from its immutable fields.
func HashObjective(description string, acceptable, unacceptable []string) string {
	fields := []string{description}
	fields = append(fields, acceptable...)
	fields = append(fields, "|")
	fields = append(fields, unacceptable...)
	return hash.Content("objective", fields...)
}

// HashAgent computes an agent's content id from its role and objective ids.
func HashAgent(roleID, objectiveID string) string {
	return hash.Content("agent", roleID, objectiveID)
}

// BuildRole constructs a role with its content id filled in.
func BuildRole(name, description string, skills []SkillRef, desiredOutcome string) *Role {
	return &Role{
		ID:             HashRole(skills, desiredOutcome, description),
		Name:           name,
		Description:    description,
		Skills:         skills,
		DesiredOutcome: desiredOutcome,
	}
}

// BuildObjective constructs an objective with its content id filled in.
func BuildObjective(name, description string, acceptable, unacceptable []string) *Objective {
	return &Objective{
		ID:                    HashObjective(description, acceptable, unacceptable),
		Name:                  name,
		Description:           description,
		AcceptableTradeoffs:   acceptable,
		UnacceptableTradeoffs: unacceptable,
	}
}

// BuildAgent constructs an agent for a (role, objective) pair.
func BuildAgent(name string, role *Role, objective *Objective, executor string) *Agent {
	return &Agent{
		ID:          HashAgent(role.ID, objective.ID),
		RoleID:      role.ID,
		ObjectiveID: objective.ID,
		Name:        name,
		TrustLevel:  TrustProvisional,
		Executor:    executor,
	}
}
