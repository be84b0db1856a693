package identity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "identity"))
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func testRole() *Role {
	return BuildRole(
		"Implementer",
		"Writes production-quality Go code",
		[]SkillRef{NameSkill("go"), InlineSkill("Always write doc comments")},
		"Working, tested code",
	)
}

func testObjective() *Objective {
	return BuildObjective(
		"Quality First",
		"Prioritise correctness",
		[]string{"Slower delivery"},
		[]string{"Skipping tests"},
	)
}

func TestContentHashIsID(t *testing.T) {
	r := testRole()
	if r.ID != HashRole(r.Skills, r.DesiredOutcome, r.Description) {
		t.Fatal("role id is not the content hash of its immutable fields")
	}
	if len(r.ID) != 64 {
		t.Fatalf("id length = %d", len(r.ID))
	}

	// Renaming must not change the id; editing an immutable field must.
	r2 := testRole()
	r2.Name = "Renamed"
	if r2.ID != r.ID {
		t.Fatal("name is mutable and must not affect the id")
	}
	r3 := BuildRole("Implementer", "Different description", r.Skills, r.DesiredOutcome)
	if r3.ID == r.ID {
		t.Fatal("description change must change the id")
	}
}

func TestAgentIDFromPair(t *testing.T) {
	role := testRole()
	objective := testObjective()
	a := BuildAgent("impl", role, objective, "claude")
	if a.ID != HashAgent(role.ID, objective.ID) {
		t.Fatal("agent id is not hash(role, objective)")
	}
}

func TestRoleRoundTrip(t *testing.T) {
	s := testStore(t)
	r := testRole()
	if err := s.SaveRole(r); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadRole(r.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != r.Name || got.DesiredOutcome != r.DesiredOutcome {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if len(got.Skills) != 2 {
		t.Fatalf("skills = %+v", got.Skills)
	}
	if got.Skills[0].Kind != SkillName || got.Skills[0].Value != "go" {
		t.Fatalf("skill[0] = %+v", got.Skills[0])
	}
	if got.Skills[1].Kind != SkillInline {
		t.Fatalf("skill[1] = %+v", got.Skills[1])
	}
}

func TestSkillRefScalarShorthand(t *testing.T) {
	s := testStore(t)
	r := testRole()

	// A hand-edited file may use a bare scalar for a tag skill.
	path := filepath.Join(s.Root(), "roles", r.ID+".yaml")
	content := "id: " + r.ID + "\nname: Hand\ndescription: d\nskills:\n  - go\ndesired_outcome: o\nperformance:\n  task_count: 0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadRole(r.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Skills[0].Kind != SkillName || got.Skills[0].Value != "go" {
		t.Fatalf("scalar skill = %+v", got.Skills[0])
	}
}

func TestPrefixLookup(t *testing.T) {
	s := testStore(t)
	r := testRole()
	if err := s.SaveRole(r); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindRoleByPrefix(r.ID[:8])
	if err != nil {
		t.Fatalf("prefix lookup: %v", err)
	}
	if got.ID != r.ID {
		t.Fatalf("resolved %s", got.ID)
	}

	if _, err := s.FindRoleByPrefix("00000000"); err == nil {
		t.Fatal("expected not-found for unknown prefix")
	}
	if _, err := s.FindRoleByPrefix(strings.Repeat("a", 4)); err == nil {
		t.Fatal("expected error for short prefix")
	}
}

func TestAgentStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	role := testRole()
	objective := testObjective()
	a := BuildAgent("careful-impl", role, objective, "claude")
	if err := s.SaveAgent(a); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindAgentByPrefix(a.ID[:10])
	if err != nil {
		t.Fatalf("find agent: %v", err)
	}
	if got.RoleID != role.ID || got.ObjectiveID != objective.ID {
		t.Fatalf("agent refs lost: %+v", got)
	}
	if got.TrustLevel != TrustProvisional {
		t.Fatalf("trust = %s", got.TrustLevel)
	}
}

func TestIsValid(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "identity"))
	if s.IsValid() {
		t.Fatal("empty dir must not be valid")
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if !s.IsValid() {
		t.Fatal("roles/ exists, store must be valid")
	}
}

func TestSeedStartersIdempotent(t *testing.T) {
	s := testStore(t)

	roles, objectives, err := SeedStarters(s)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if roles < 4 || objectives < 4 {
		t.Fatalf("seeded %d roles, %d objectives", roles, objectives)
	}

	roles2, objectives2, err := SeedStarters(s)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if roles2 != 0 || objectives2 != 0 {
		t.Fatalf("reseed created %d/%d entities", roles2, objectives2)
	}

	all, err := s.LoadAllRoles()
	if err != nil {
		t.Fatal(err)
	}
	var programmer bool
	for _, r := range all {
		if r.Name == "Programmer" {
			programmer = true
		}
	}
	if !programmer {
		t.Fatal("starter catalog must contain a Programmer role")
	}

	objs, err := s.LoadAllObjectives()
	if err != nil {
		t.Fatal(err)
	}
	var careful bool
	for _, o := range objs {
		if o.Name == "Careful" {
			careful = true
		}
	}
	if !careful {
		t.Fatal("starter catalog must contain a Careful objective")
	}
}

func TestLoadAllRewardsAcceptsJSON(t *testing.T) {
	s := testStore(t)
	jsonReward := `{"id":"rw-1","task_id":"t1","role_id":"r1","objective_id":"o1","value":0.8,"timestamp":"2026-01-01T00:00:00Z"}`
	path := filepath.Join(s.Root(), "rewards", "rw-1.json")
	if err := os.WriteFile(path, []byte(jsonReward), 0644); err != nil {
		t.Fatal(err)
	}

	rewards, err := s.LoadAllRewards()
	if err != nil {
		t.Fatalf("load rewards: %v", err)
	}
	if len(rewards) != 1 || rewards[0].Value != 0.8 {
		t.Fatalf("rewards = %+v", rewards)
	}
}
