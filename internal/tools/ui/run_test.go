package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelLifecycle(t *testing.T) {
	m := newModel("migrate up", func(context.Context) ([]string, error) {
		return []string{"schema up to date"}, nil
	})
	if !strings.Contains(m.View(), "Running") {
		t.Fatalf("expected running view, got %q", m.View())
	}

	msg := m.Init()()
	next, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("expected quit command after action completes")
	}
	done := next.(model)
	if !done.done || done.err != nil {
		t.Fatalf("unexpected final model: %+v", done)
	}
	view := done.View()
	if !strings.Contains(view, "OK") || !strings.Contains(view, "- schema up to date") {
		t.Fatalf("unexpected success view: %q", view)
	}
}

func TestModelFailureView(t *testing.T) {
	m := newModel("seed user", nil)
	next, _ := m.Update(actionMsg{err: errors.New("db down"), elapsed: time.Millisecond})
	view := next.(model).View()
	if !strings.Contains(view, "FAILED") || !strings.Contains(view, "db down") {
		t.Fatalf("unexpected failure view: %q", view)
	}
}

func TestModelCtrlCCancels(t *testing.T) {
	m := newModel("migrate up", nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit on ctrl+c")
	}
	if !errors.Is(next.(model).err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", next.(model).err)
	}
	if m.ctx.Err() == nil {
		t.Fatal("expected action context cancelled")
	}
}
