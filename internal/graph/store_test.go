package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func makeTask(id, title string) *Task {
	return &Task{ID: id, Title: title, Status: StatusOpen}
}

func writeGraph(t *testing.T, dir string, tasks ...*Task) string {
	t.Helper()
	g := New()
	for _, task := range tasks {
		g.AddTask(task)
	}
	path := Path(dir)
	if err := Save(g, path); err != nil {
		t.Fatalf("save graph: %v", err)
	}
	return path
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t1 := makeTask("t1", "First")
	t1.BlockedBy = []string{"t2"}
	t1.Skills = []string{"go", "testing"}
	t2 := makeTask("t2", "Second")
	t2.Status = StatusDone
	path := writeGraph(t, dir, t1, t2)

	g, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("len = %d, want 2", g.Len())
	}

	got := g.Task("t1")
	if got == nil {
		t.Fatal("t1 missing after round trip")
	}
	if got.Title != "First" || len(got.BlockedBy) != 1 || got.BlockedBy[0] != "t2" {
		t.Fatalf("t1 fields lost: %+v", got)
	}
	if g.Task("t2").Status != StatusDone {
		t.Fatalf("t2 status = %s", g.Task("t2").Status)
	}
}

func TestLoadPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeGraph(t, dir, makeTask("b", "B"), makeTask("a", "A"), makeTask("c", "C"))

	g, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var ids []string
	for _, task := range g.Tasks() {
		ids = append(ids, task.ID)
	}
	if strings.Join(ids, ",") != "b,a,c" {
		t.Fatalf("order = %v, want [b a c]", ids)
	}
}

func TestLoadIgnoresEmptyLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"kind":"task","id":"t1","title":"One","status":"open"}

{"kind":"resource","id":"gpu","description":"shared GPU"}
`
	path := filepath.Join(dir, GraphFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	g, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.Task("t1") == nil {
		t.Fatal("task missing")
	}
	if g.Resource("gpu") == nil {
		t.Fatal("resource missing")
	}
}

func TestLoadMissingFileIsNotInitialized(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), GraphFile))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("error = %v", err)
	}
}

func TestSaveEmitsTrailingNewlinePerRecord(t *testing.T) {
	dir := t.TempDir()
	path := writeGraph(t, dir, makeTask("t1", "One"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatal("missing trailing newline")
	}
	if !strings.Contains(string(data), `"kind":"task"`) {
		t.Fatalf("missing kind discriminator: %s", data)
	}
}

func TestUpdateSavesOnlyWhenModified(t *testing.T) {
	dir := t.TempDir()
	writeGraph(t, dir, makeTask("t1", "One"))

	err := Update(dir, func(g *Graph) (bool, error) {
		g.Task("t1").Title = "Renamed"
		return true, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	g, err := Load(Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	if g.Task("t1").Title != "Renamed" {
		t.Fatal("update not persisted")
	}
}

func TestRemoveNodeReindexes(t *testing.T) {
	g := New()
	g.AddTask(makeTask("a", "A"))
	g.AddTask(makeTask("b", "B"))
	g.AddTask(makeTask("c", "C"))

	if !g.RemoveNode("b") {
		t.Fatal("remove returned false")
	}
	if g.Task("b") != nil {
		t.Fatal("b still present")
	}
	if g.Task("c") == nil || g.Task("c").Title != "C" {
		t.Fatal("index corrupted after removal")
	}
}
