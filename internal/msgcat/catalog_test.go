package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_EmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("game_over.timeout", map[string]string{"Winner": "bob", "Loser": "alice"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "alice ran out of time. bob wins." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestRender_MissingKeyAndField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("error.room_full", map[string]string{}); err == nil {
		t.Fatalf("expected error for missing template field")
	}
	if got := c.Text("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("game_over.default", nil, "nil-safe"); got != "nil-safe" {
		t.Fatalf("nil catalog Text = %q", got)
	}
}

func TestNew_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "game_over:\n  draw_by_agreement: \"Players agreed to a draw.\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-override.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("game_over.draw_by_agreement", nil, ""); got != "Players agreed to a draw." {
		t.Fatalf("override not applied: %q", got)
	}
	if !c.Has("game_over.timeout") {
		t.Fatalf("embedded keys must survive overrides")
	}
}

func TestNew_DuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	body := "error:\n  room_full: \"full\"\n"
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_, err := New(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
