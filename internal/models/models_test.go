package models

import (
	"errors"
	"testing"
)

func TestInitDefaultsIdempotent(t *testing.T) {
	dir := t.TempDir()

	added, err := InitDefaults(dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if added != 3 {
		t.Fatalf("added = %d", added)
	}

	added, err = InitDefaults(dir)
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Fatalf("re-init added %d", added)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Models) != 3 || c.Default == "" {
		t.Fatalf("catalog = %+v", c)
	}
}

func TestListByTier(t *testing.T) {
	c := &Catalog{}
	for _, m := range Defaults() {
		c.Add(m)
	}

	low := c.List(TierLow)
	if len(low) != 1 || low[0].Tier != TierLow {
		t.Fatalf("low = %+v", low)
	}
	if len(c.List("")) != 3 {
		t.Fatal("unfiltered list wrong")
	}
}

func TestAddUpserts(t *testing.T) {
	c := &Catalog{}
	c.Add(Entry{ID: "m1", Tier: TierLow})
	c.Add(Entry{ID: "m1", Tier: TierHigh, Provider: "other"})
	if len(c.Models) != 1 {
		t.Fatalf("models = %+v", c.Models)
	}
	if c.Models[0].Tier != TierHigh {
		t.Fatal("upsert did not replace")
	}
}

func TestSetDefault(t *testing.T) {
	c := &Catalog{}
	c.Add(Entry{ID: "m1", Tier: TierLow})

	if err := c.SetDefault("m1"); err != nil {
		t.Fatal(err)
	}
	if c.Default != "m1" {
		t.Fatalf("default = %s", c.Default)
	}
	if err := c.SetDefault("ghost"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseTier(t *testing.T) {
	if _, err := ParseTier("mid"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseTier("ultra"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := &Catalog{Default: "m1"}
	c.Add(Entry{ID: "m1", Provider: "anthropic", CostPer1MInput: 1, CostPer1MOutput: 2, ContextWindow: 100000, Tier: TierMid})
	if err := Save(dir, c); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.Default != "m1" || len(got.Models) != 1 {
		t.Fatalf("catalog = %+v", got)
	}
	if got.Models[0].CostPer1MOutput != 2 {
		t.Fatalf("entry = %+v", got.Models[0])
	}
}
