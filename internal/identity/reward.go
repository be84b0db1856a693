package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewReward builds a reward record with a fresh id and timestamp.
func NewReward(taskID, agentID, roleID, objectiveID string, value float64, evaluator, notes, source string) *Reward {
	return &Reward{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		AgentID:     agentID,
		RoleID:      roleID,
		ObjectiveID: objectiveID,
		Value:       value,
		Notes:       notes,
		Evaluator:   evaluator,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Source:      source,
	}
}

// RecordReward persists a reward and folds it into the performance of the
// referenced role, objective and (when set) agent.
func RecordReward(s *Store, r *Reward) error {
	if r.Value < 0 || r.Value > 1 {
		return fmt.Errorf("reward value %v out of range [0,1]", r.Value)
	}
	if err := s.SaveReward(r); err != nil {
		return fmt.Errorf("saving reward: %w", err)
	}

	ref := RewardRef{RewardID: r.ID, TaskID: r.TaskID, Value: r.Value, Timestamp: r.Timestamp}

	role, err := s.LoadRole(r.RoleID)
	if err != nil {
		return fmt.Errorf("updating role performance: %w", err)
	}
	role.Performance.Add(ref)
	if err := s.SaveRole(role); err != nil {
		return fmt.Errorf("updating role performance: %w", err)
	}

	objective, err := s.LoadObjective(r.ObjectiveID)
	if err != nil {
		return fmt.Errorf("updating objective performance: %w", err)
	}
	objective.Performance.Add(ref)
	if err := s.SaveObjective(objective); err != nil {
		return fmt.Errorf("updating objective performance: %w", err)
	}

	if r.AgentID != "" {
		agent, err := s.LoadAgent(r.AgentID)
		if err != nil {
			return fmt.Errorf("updating agent performance: %w", err)
		}
		agent.Performance.Add(ref)
		if err := s.SaveAgent(agent); err != nil {
			return fmt.Errorf("updating agent performance: %w", err)
		}
	}
	return nil
}
