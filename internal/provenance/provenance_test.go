package provenance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecordAndLoad(t *testing.T) {
	dir := t.TempDir()

	err := Record(dir, "assign", "t1", "alice", map[string]any{"agent_hash": "abc"}, 0)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := Record(dir, "done", "t1", "", nil, 0); err != nil {
		t.Fatalf("record: %v", err)
	}

	events, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Op != "assign" || events[0].TaskID != "t1" || events[0].Actor != "alice" {
		t.Fatalf("event = %+v", events[0])
	}
	if events[0].Detail["agent_hash"] != "abc" {
		t.Fatalf("detail = %+v", events[0].Detail)
	}
	if events[0].Timestamp == "" {
		t.Fatal("missing timestamp")
	}
}

func TestLoadEmpty(t *testing.T) {
	events, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if events != nil {
		t.Fatalf("events = %v, want nil", events)
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()

	// A tiny threshold forces rotation on the second append.
	if err := Record(dir, "add", "t1", "", nil, 10); err != nil {
		t.Fatal(err)
	}
	if err := Record(dir, "add", "t2", "", nil, 10); err != nil {
		t.Fatal(err)
	}

	archives, err := Archives(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 1 {
		t.Fatalf("archives = %v, want 1", archives)
	}

	// The fresh log holds only the post-rotation event.
	events, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].TaskID != "t2" {
		t.Fatalf("events = %+v", events)
	}

	// The archive still holds the original.
	data, err := os.ReadFile(filepath.Join(dir, archives[0]))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("archive is empty")
	}
}

func TestZeroThresholdDisablesRotation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		if err := Record(dir, "tick", "", "", nil, 0); err != nil {
			t.Fatal(err)
		}
	}
	archives, err := Archives(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 0 {
		t.Fatalf("archives = %v, want none", archives)
	}
}
