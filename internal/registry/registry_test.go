package registry

import (
	"os"
	"testing"
	"time"
)

func TestLoadEmptyRegistry(t *testing.T) {
	r, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(r.Agents) != 0 {
		t.Fatalf("agents = %v", r.Agents)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := &Registry{Agents: map[string]*Entry{}}
	e := NewEntry(12345, "t1", "claude", "/tmp/out.txt")
	r.Agents[e.ID] = e

	if err := Save(dir, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entry, ok := got.Agents[e.ID]
	if !ok {
		t.Fatal("entry lost")
	}
	if entry.PID != 12345 || entry.TaskID != "t1" || entry.Status != StatusRunning {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestIsAliveProbesPID(t *testing.T) {
	// Our own PID exists.
	live := NewEntry(os.Getpid(), "t1", "claude", "")
	if !live.IsAlive(0) {
		t.Fatal("entry with our own PID should be alive")
	}

	// A PID from the far end of the space is almost certainly gone.
	dead := NewEntry(1<<22-7, "t2", "claude", "")
	if dead.IsAlive(0) {
		t.Skip("improbable PID is actually running")
	}
}

func TestIsAliveRespectsStatus(t *testing.T) {
	e := NewEntry(os.Getpid(), "t1", "claude", "")
	e.Status = StatusCompleted
	if e.IsAlive(0) {
		t.Fatal("completed entry must not be alive")
	}
}

func TestIsAliveHeartbeatThreshold(t *testing.T) {
	e := NewEntry(os.Getpid(), "t1", "claude", "")
	e.LastHeartbeat = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if e.IsAlive(time.Minute) {
		t.Fatal("stale heartbeat must mark entry not alive")
	}
	if !e.IsAlive(0) {
		t.Fatal("zero threshold disables the heartbeat check")
	}
}

func TestCleanupRemovesDeadOnly(t *testing.T) {
	r := &Registry{Agents: map[string]*Entry{}}
	live := NewEntry(os.Getpid(), "t1", "claude", "")
	dead := NewEntry(os.Getpid(), "t2", "claude", "")
	dead.Status = StatusDead
	r.Agents[live.ID] = live
	r.Agents[dead.ID] = dead

	removed := r.Cleanup(0)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := r.Agents[live.ID]; !ok {
		t.Fatal("live entry removed")
	}
	if _, ok := r.Agents[dead.ID]; ok {
		t.Fatal("dead entry kept")
	}
}

func TestHeartbeatRefreshes(t *testing.T) {
	r := &Registry{Agents: map[string]*Entry{}}
	e := NewEntry(os.Getpid(), "t1", "claude", "")
	e.LastHeartbeat = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	r.Agents[e.ID] = e

	if err := r.Heartbeat(e.ID); err != nil {
		t.Fatal(err)
	}
	if !e.IsAlive(time.Minute) {
		t.Fatal("heartbeat did not refresh")
	}

	if err := r.Heartbeat("ghost"); err == nil {
		t.Fatal("expected error for unknown entry")
	}
}
