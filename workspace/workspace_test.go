package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveCreatesAbsoluteDir(t *testing.T) {
	base := t.TempDir()
	ws, err := Resolve(filepath.Join(base, "workspace"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !filepath.IsAbs(ws.Dir()) {
		t.Errorf("Dir() = %q, want absolute path", ws.Dir())
	}
	info, err := os.Stat(ws.Dir())
	if err != nil || !info.IsDir() {
		t.Errorf("workspace directory was not created: %v", err)
	}
}

func TestResolveEmptyPath(t *testing.T) {
	if _, err := Resolve(""); err == nil {
		t.Fatal("Resolve(\"\") should fail")
	}
}

func TestResolveRejectsFile(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "notadir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(file); err == nil {
		t.Fatal("Resolve should reject a regular file")
	}
}

func TestPathStripsTraversal(t *testing.T) {
	ws, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got := ws.Path("../../etc/passwd")
	want := filepath.Join(ws.Dir(), "passwd")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestResetAndHas(t *testing.T) {
	ws, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if ws.Has("films.csv") {
		t.Error("Has() = true for a missing artifact")
	}

	if err := os.WriteFile(ws.Path("films.csv"), []byte("Rank,Title\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !ws.Has("films.csv") {
		t.Error("Has() = false for an existing artifact")
	}

	// Missing names are fine, existing ones get removed.
	if err := ws.Reset("films.csv", "scraped_table.html"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ws.Has("films.csv") {
		t.Error("artifact still present after Reset")
	}
}
