package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	labelio "github.com/matzehuels/labelpal/pkg/io"
)

func testResult() *labelio.Result {
	return &labelio.Result{
		Status: "solved",
		Labels: []labelio.Label{
			{Layer: "towns", Text: "Alpha", X: 1, Y: 2, Width: 8, Height: 2},
			{Layer: "towns", Text: "Beta", X: 3, Y: 4, Width: 8, Height: 2},
		},
		Unplaced: []labelio.Label{
			{Layer: "rivers", Text: "Rhine"},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m LabelListModel, keys ...string) LabelListModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(LabelListModel)
	}
	return m
}

func TestLabelListNavigation(t *testing.T) {
	m := newLabelListModel(testResult())
	if len(m.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(m.Rows))
	}

	m = update(m, "down", "j", "down")
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.Cursor)
	}
	m = update(m, "up", "k", "k")
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0 (clamped)", m.Cursor)
	}
}

func TestLabelListScrolls(t *testing.T) {
	m := newLabelListModel(testResult())
	m.Height = 2

	m = update(m, "down", "down")
	if m.Offset != 1 {
		t.Errorf("offset = %d, want 1", m.Offset)
	}
	m = update(m, "up", "up")
	if m.Offset != 0 {
		t.Errorf("offset = %d, want 0", m.Offset)
	}
}

func TestLabelListFilter(t *testing.T) {
	tests := []struct {
		presses int
		filter  labelFilter
		rows    int
	}{
		{0, filterAll, 3},
		{1, filterPlaced, 2},
		{2, filterUnplaced, 1},
		{3, filterAll, 3},
	}

	for _, tt := range tests {
		m := update(newLabelListModel(testResult()), "down")
		for i := 0; i < tt.presses; i++ {
			m = update(m, "tab")
		}
		if m.Filter != tt.filter || len(m.Rows) != tt.rows {
			t.Errorf("after %d tabs: filter = %v rows = %d, want %v and %d", tt.presses, m.Filter, len(m.Rows), tt.filter, tt.rows)
		}
		if tt.presses > 0 && m.Cursor != 0 {
			t.Errorf("filter change should reset the cursor, got %d", m.Cursor)
		}
	}
}

func TestLabelListQuit(t *testing.T) {
	m := newLabelListModel(testResult())
	for _, k := range []string{"q", "esc"} {
		var msg tea.KeyMsg
		if k == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		} else {
			msg = key(k)
		}
		if _, cmd := m.Update(msg); cmd == nil {
			t.Errorf("%q should return a quit command", k)
		}
	}
}

func TestLabelListWindowSize(t *testing.T) {
	m := newLabelListModel(testResult())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	if got := next.(LabelListModel).Height; got != 5 {
		t.Errorf("height = %d, want minimum 5", got)
	}
	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	if got := next.(LabelListModel).Height; got != 32 {
		t.Errorf("height = %d, want 32", got)
	}
}

func TestLabelListView(t *testing.T) {
	view := newLabelListModel(testResult()).View()
	for _, want := range []string{"Labels", "Alpha", "Beta", "Rhine", "rivers", "[1/3]", "2 placed", "1 unplaced"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	empty := newLabelListModel(&labelio.Result{Status: "empty"}).View()
	if !strings.Contains(empty, "[0/0]") {
		t.Errorf("empty View() = %q, want [0/0]", empty)
	}
}

func TestLoadResultFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	if err := labelio.ExportJSON(testResult(), path); err != nil {
		t.Fatal(err)
	}
	c := New(io.Discard, LogInfo)
	res, err := c.loadResult(context.Background(), path, true)
	if err != nil {
		t.Fatalf("loadResult() error: %v", err)
	}
	if len(res.Labels) != 2 || len(res.Unplaced) != 1 {
		t.Errorf("loaded %d/%d labels, want 2/1", len(res.Labels), len(res.Unplaced))
	}
}
