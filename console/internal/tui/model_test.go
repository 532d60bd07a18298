package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cellbench/console/internal/livesync"
)

func TestModelNavigationAndView(t *testing.T) {
	store := livesync.NewStore(4)
	if err := store.Apply([]byte(`{"type":"update","data":[{"station_id":2,"state":"running","voltage_mv":24100,"current_ma":5000}]}`)); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}
	if err := store.Apply([]byte(`{"type":"task_awaiting_input","station_id":2,"task":{"task_id":7,"task_number":3,"label":"Measure pack voltage","step_type":"measure"}}`)); err != nil {
		t.Fatalf("apply awaiting: %v", err)
	}
	store.SetConnected(true)

	m := New(store, nil, 100*time.Millisecond)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = next.(Model)
	if m.cursor != 1 {
		t.Fatalf("expected cursor 1 after moving right, got %d", m.cursor)
	}

	view := m.View()
	for _, want := range []string{"Station 1", "Station 4", "RUNNING", "INPUT", "LIVE", "24.10 V"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	view = m.View()
	if !strings.Contains(view, "AWAITING INPUT") || !strings.Contains(view, "Measure pack voltage") {
		t.Fatal("detail pane missing the awaiting task")
	}
}

func TestModelCursorStaysInsideGrid(t *testing.T) {
	m := New(livesync.NewStore(3), nil, 0)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	m = next.(Model)
	if m.cursor != 0 {
		t.Fatalf("cursor moved below zero: %d", m.cursor)
	}

	for i := 0; i < 10; i++ {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
		m = next.(Model)
	}
	if m.cursor != 2 {
		t.Fatalf("cursor ran past the last station: %d", m.cursor)
	}
}

func TestModelQuit(t *testing.T) {
	m := New(livesync.NewStore(1), nil, 0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestModelConnectionBanner(t *testing.T) {
	store := livesync.NewStore(2)
	m := New(store, nil, 0)

	if !strings.Contains(m.View(), "RECONNECTING") {
		t.Fatal("expected the reconnecting banner while disconnected")
	}

	store.SetConnected(true)
	if !strings.Contains(m.View(), "LIVE") {
		t.Fatal("expected the live banner once connected")
	}
}
