package ui

import (
	"strings"
	"testing"

	"matforge/internal/setup"
)

func TestProgressModelTracksItems(t *testing.T) {
	m := NewProgressModel("setup", []string{"lib.toml", "material 1"}, nil).(*progressModel)

	m.applyEvent(setup.Event{Item: "lib.toml", Stage: setup.StageLoad, Status: setup.StatusWorking})
	if got := m.items[0].status; got != "loading" {
		t.Fatalf("status = %q", got)
	}
	m.applyEvent(setup.Event{Item: "lib.toml", Stage: setup.StageLoad, Status: setup.StatusDone})
	m.applyEvent(setup.Event{Item: "material 2 (fuel)", Stage: setup.StageRegister, Status: setup.StatusError})
	if len(m.items) != 3 || m.failed != 1 {
		t.Fatalf("items = %+v, failed = %d", m.items, m.failed)
	}
	m.applyEvent(setup.Event{Stage: setup.StageSeal, Status: setup.StatusWorking})
	if m.stageLabel != "seal: sealing" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}

	m.done = true
	view := m.View()
	for _, want := range []string{"failed", "lib.toml", "material 2 (fuel)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("material 12 (moderator)", 10); got != "materia..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
