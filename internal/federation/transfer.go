package federation

import (
	"fmt"
	"strings"

	"github.com/nikete/workgraph/internal/identity"
)

// EntityFilter restricts a transfer to one entity kind.
type EntityFilter string

const (
	FilterAll        EntityFilter = "all"
	FilterRoles      EntityFilter = "roles"
	FilterObjectives EntityFilter = "objectives"
	FilterAgents     EntityFilter = "agents"
)

// ParseEntityFilter accepts the singular and plural CLI spellings.
func ParseEntityFilter(s string) (EntityFilter, error) {
	switch s {
	case "":
		return FilterAll, nil
	case "role", "roles":
		return FilterRoles, nil
	case "objective", "objectives":
		return FilterObjectives, nil
	case "agent", "agents":
		return FilterAgents, nil
	}
	return "", fmt.Errorf("unknown entity type %q: use role, objective, or agent", s)
}

// Options controls a transfer.
type Options struct {
	DryRun        bool
	NoPerformance bool
	NoRewards     bool
	Force         bool
	EntityIDs     []string
	EntityFilter  EntityFilter
}

// Summary reports what a transfer did (or, in dry-run, would do).
type Summary struct {
	RolesAdded        int `json:"roles_added"`
	RolesUpdated      int `json:"roles_updated"`
	RolesSkipped      int `json:"roles_skipped"`
	ObjectivesAdded   int `json:"objectives_added"`
	ObjectivesUpdated int `json:"objectives_updated"`
	ObjectivesSkipped int `json:"objectives_skipped"`
	AgentsAdded       int `json:"agents_added"`
	AgentsUpdated     int `json:"agents_updated"`
	AgentsSkipped     int `json:"agents_skipped"`
	RewardsAdded      int `json:"rewards_added"`
	RewardsSkipped    int `json:"rewards_skipped"`
}

// String renders the summary as the multi-line block shown after a push.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Roles:      %d added, %d updated, %d skipped\n", s.RolesAdded, s.RolesUpdated, s.RolesSkipped)
	fmt.Fprintf(&b, "  Objectives: %d added, %d updated, %d skipped\n", s.ObjectivesAdded, s.ObjectivesUpdated, s.ObjectivesSkipped)
	fmt.Fprintf(&b, "  Agents:     %d added, %d updated, %d skipped\n", s.AgentsAdded, s.AgentsUpdated, s.AgentsSkipped)
	fmt.Fprintf(&b, "  Rewards:    %d added, %d skipped", s.RewardsAdded, s.RewardsSkipped)
	return b.String()
}

// verdicts for one entity comparison.
type verdict int

const (
	verdictAdd verdict = iota
	verdictUpdate
	verdictSkip
)

// compare decides what to do with a source entity: absent targets are
// added; present targets are updated under --force or when the source has
// strictly more recorded rewards; otherwise skipped.
func compare(targetExists bool, force bool, sourceRewards, targetRewards int) verdict {
	if !targetExists {
		return verdictAdd
	}
	if force || sourceRewards > targetRewards {
		return verdictUpdate
	}
	return verdictSkip
}

// wanted reports whether an id passes the explicit id selection (empty
// selection = all within filter).
func wanted(ids []string, id string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, want := range ids {
		if want == id || strings.HasPrefix(id, want) {
			return true
		}
	}
	return false
}

// Transfer copies entities from source to target per the options and
// returns a summary. When transferring an agent, its referenced role and
// objective join the set regardless of the filter. Dry runs compute the
// summary without writing.
func Transfer(source, target *identity.Store, opts Options) (Summary, error) {
	var summary Summary
	filter := opts.EntityFilter
	if filter == "" {
		filter = FilterAll
	}

	// Entity selection within the filter.
	roleSet := map[string]bool{}
	objectiveSet := map[string]bool{}
	agentSet := map[string]bool{}

	if filter == FilterAll || filter == FilterRoles {
		all, err := source.LoadAllRoles()
		if err != nil {
			return summary, err
		}
		for _, r := range all {
			if wanted(opts.EntityIDs, r.ID) {
				roleSet[r.ID] = true
			}
		}
	}
	if filter == FilterAll || filter == FilterObjectives {
		all, err := source.LoadAllObjectives()
		if err != nil {
			return summary, err
		}
		for _, o := range all {
			if wanted(opts.EntityIDs, o.ID) {
				objectiveSet[o.ID] = true
			}
		}
	}
	if filter == FilterAll || filter == FilterAgents {
		all, err := source.LoadAllAgents()
		if err != nil {
			return summary, err
		}
		for _, a := range all {
			if wanted(opts.EntityIDs, a.ID) {
				agentSet[a.ID] = true
				// Closure: an agent drags its role and objective along,
				// filter notwithstanding.
				roleSet[a.RoleID] = true
				objectiveSet[a.ObjectiveID] = true
			}
		}
	}

	if !opts.DryRun {
		if err := target.Init(); err != nil {
			return summary, err
		}
	}

	for id := range roleSet {
		role, err := source.LoadRole(id)
		if err != nil {
			return summary, fmt.Errorf("loading role for transfer: %w", err)
		}
		targetRewards := 0
		if target.ExistsRole(id) {
			if existing, err := target.LoadRole(id); err == nil {
				targetRewards = existing.Performance.TaskCount
			}
		}
		switch compare(target.ExistsRole(id), opts.Force, role.Performance.TaskCount, targetRewards) {
		case verdictAdd:
			summary.RolesAdded++
		case verdictUpdate:
			summary.RolesUpdated++
		case verdictSkip:
			summary.RolesSkipped++
			continue
		}
		if opts.DryRun {
			continue
		}
		if opts.NoPerformance {
			stripped := *role
			stripped.Performance = identity.RewardHistory{}
			role = &stripped
		}
		if err := target.SaveRole(role); err != nil {
			return summary, err
		}
	}

	for id := range objectiveSet {
		objective, err := source.LoadObjective(id)
		if err != nil {
			return summary, fmt.Errorf("loading objective for transfer: %w", err)
		}
		targetRewards := 0
		if target.ExistsObjective(id) {
			if existing, err := target.LoadObjective(id); err == nil {
				targetRewards = existing.Performance.TaskCount
			}
		}
		switch compare(target.ExistsObjective(id), opts.Force, objective.Performance.TaskCount, targetRewards) {
		case verdictAdd:
			summary.ObjectivesAdded++
		case verdictUpdate:
			summary.ObjectivesUpdated++
		case verdictSkip:
			summary.ObjectivesSkipped++
			continue
		}
		if opts.DryRun {
			continue
		}
		if opts.NoPerformance {
			stripped := *objective
			stripped.Performance = identity.RewardHistory{}
			objective = &stripped
		}
		if err := target.SaveObjective(objective); err != nil {
			return summary, err
		}
	}

	for id := range agentSet {
		agent, err := source.LoadAgent(id)
		if err != nil {
			return summary, fmt.Errorf("loading agent for transfer: %w", err)
		}
		targetRewards := 0
		if target.ExistsAgent(id) {
			if existing, err := target.LoadAgent(id); err == nil {
				targetRewards = existing.Performance.TaskCount
			}
		}
		switch compare(target.ExistsAgent(id), opts.Force, agent.Performance.TaskCount, targetRewards) {
		case verdictAdd:
			summary.AgentsAdded++
		case verdictUpdate:
			summary.AgentsUpdated++
		case verdictSkip:
			summary.AgentsSkipped++
			continue
		}
		if opts.DryRun {
			continue
		}
		if opts.NoPerformance {
			stripped := *agent
			stripped.Performance = identity.RewardHistory{}
			agent = &stripped
		}
		if err := target.SaveAgent(agent); err != nil {
			return summary, err
		}
	}

	if !opts.NoRewards {
		rewards, err := source.LoadAllRewards()
		if err != nil {
			return summary, err
		}
		for _, reward := range rewards {
			// Only rewards whose subjects travelled are copied.
			relevant := roleSet[reward.RoleID] || objectiveSet[reward.ObjectiveID] ||
				(reward.AgentID != "" && agentSet[reward.AgentID])
			if !relevant || target.ExistsReward(reward.ID) {
				summary.RewardsSkipped++
				continue
			}
			summary.RewardsAdded++
			if opts.DryRun {
				continue
			}
			if err := target.SaveReward(reward); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}
