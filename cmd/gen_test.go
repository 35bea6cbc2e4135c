package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/solver"
)

func TestParseFlags(t *testing.T) {
	if topo, err := parseTopology("HEX"); err != nil || topo != grid.Hex {
		t.Errorf("Expected hex, got %v %v", topo, err)
	}
	if _, err := parseTopology("triangle"); err == nil {
		t.Error("Expected an error for an unknown topology")
	}
	if level, err := parseLevel("deep"); err != nil || level != solver.GuessDeep {
		t.Errorf("Expected deep, got %v %v", level, err)
	}
	if _, err := parseLevel("hard"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestWriteLayout(t *testing.T) {
	res := generator.Generate(context.Background(), generator.Options{Budget: time.Second, Seed: 7},
		generator.Request{Width: 9, Height: 6, MineCount: 10, Level: solver.GuessBasic})
	if res.Err != nil {
		t.Fatalf("Generate failed: %v", res.Err)
	}

	var buf bytes.Buffer
	writeLayout(&buf, res)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("Expected a header and 6 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "9x6 square") {
		t.Errorf("Unexpected header %q", lines[0])
	}

	mines := 0
	for _, row := range lines[1:] {
		if len(row) != 9 {
			t.Errorf("Expected 9 cells per row, got %q", row)
		}
		mines += strings.Count(row, "*")
	}
	if mines != 10 {
		t.Errorf("Expected 10 mines, got %d", mines)
	}
	if res.HasStart && strings.Count(buf.String(), "S") != 1 {
		t.Errorf("Expected exactly one start marker:\n%s", buf.String())
	}
}
