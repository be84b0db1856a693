package identity

// StarterRoles returns the fixed catalog of seed roles. Ids are content
// hashes, so the catalog is stable across stores.
func StarterRoles() []*Role {
	return []*Role{
		BuildRole(
			"Programmer",
			"Writes production-quality code with tests.",
			[]SkillRef{NameSkill("programming"), NameSkill("testing")},
			"Working, tested code merged without regressions",
		),
		BuildRole(
			"Reviewer",
			"Reviews changes for correctness, clarity and safety.",
			[]SkillRef{NameSkill("code-review")},
			"Defects caught before merge",
		),
		BuildRole(
			"Researcher",
			"Investigates questions and summarizes findings with sources.",
			[]SkillRef{NameSkill("research"), NameSkill("writing")},
			"Accurate, sourced answers",
		),
		BuildRole(
			"Planner",
			"Decomposes goals into dependency-ordered tasks.",
			[]SkillRef{NameSkill("planning")},
			"A work graph others can execute",
		),
	}
}

// StarterObjectives returns the fixed catalog of seed objectives.
func StarterObjectives() []*Objective {
	return []*Objective{
		BuildObjective(
			"Careful",
			"Prioritise correctness over speed.",
			[]string{"Slower delivery"},
			[]string{"Skipping tests", "Unverified claims"},
		),
		BuildObjective(
			"Fast",
			"Ship a working result quickly.",
			[]string{"Rough edges", "Minimal polish"},
			[]string{"Broken builds"},
		),
		BuildObjective(
			"Thorough",
			"Leave no stone unturned.",
			[]string{"Takes longer"},
			[]string{"Rubber-stamping"},
		),
		BuildObjective(
			"Frugal",
			"Minimise spend while meeting the goal.",
			[]string{"Cheaper models", "Fewer retries"},
			[]string{"Abandoning the task"},
		),
	}
}

// SeedStarters writes the starter catalogs into a store, skipping entities
// that already exist. It returns how many roles and objectives were created.
func SeedStarters(s *Store) (rolesCreated, objectivesCreated int, err error) {
	if err := s.Init(); err != nil {
		return 0, 0, err
	}
	for _, r := range StarterRoles() {
		if s.ExistsRole(r.ID) {
			continue
		}
		if err := s.SaveRole(r); err != nil {
			return rolesCreated, objectivesCreated, err
		}
		rolesCreated++
	}
	for _, o := range StarterObjectives() {
		if s.ExistsObjective(o.ID) {
			continue
		}
		if err := s.SaveObjective(o); err != nil {
			return rolesCreated, objectivesCreated, err
		}
		objectivesCreated++
	}
	return rolesCreated, objectivesCreated, nil
}
