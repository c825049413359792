package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRun_SuccessWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "prog.penguin")
	out := filepath.Join(dir, "prog.asm")

	code := run([]byte("int a = 5; int b = a + 3;"), in, out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestRun_DefaultOutputPath(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "prog.penguin")

	code := run([]byte("int a = 1;"), in, "")

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "prog.asm")); err != nil {
		t.Fatalf("expected default .asm output path to exist: %v", err)
	}
}

func TestRun_CompileErrorReturnsOne(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "prog.penguin")

	code := run([]byte(`int x = "hello";`), in, "")

	if code != 1 {
		t.Fatalf("expected exit code 1 on a compile error, got %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "prog.asm")); err == nil {
		t.Errorf("expected no output file to be written on a compile error")
	}
}

func TestDefaultOutputPath(t *testing.T) {
	if got := defaultOutputPath("game.penguin"); got != "game.asm" {
		t.Errorf("defaultOutputPath(%q) = %q, want %q", "game.penguin", got, "game.asm")
	}
	if got := defaultOutputPath("game"); got != "game.asm" {
		t.Errorf("defaultOutputPath(%q) = %q, want %q", "game", got, "game.asm")
	}
}
