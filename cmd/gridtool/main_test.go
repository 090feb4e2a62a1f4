package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "grid.yaml")
	if err := os.WriteFile(cfgPath, []byte("terrain:\n  mode: flat\ngrid:\n  radius: 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	csvPath := filepath.Join(dir, "cells.csv")

	var out bytes.Buffer
	err := run(context.Background(), options{
		configPath: cfgPath,
		csvPath:    csvPath,
		dbPath:     filepath.Join(dir, "grid.db"),
		name:       "test",
		query:      "0,0:8,0",
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"accepted 217", "world neighbor mismatches: 0", "snapshot ", "this turn 6", "2 hops remain"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 218 {
		t.Fatalf("expected header plus 217 rows, got %d lines", lines)
	}
}

func TestParseQuery(t *testing.T) {
	from, to, err := parseQuery("1,-2:3,4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if from.Q != 1 || from.R != -2 || to.Q != 3 || to.R != 4 {
		t.Fatalf("unexpected coords %v %v", from, to)
	}
	for _, bad := range []string{"1,2", "a,b:1,2", "1,2:x"} {
		if _, _, err := parseQuery(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
