package main

import (
	"flag"
	"io"
	"testing"
)

func parseOutput(t *testing.T, args ...string) *outputFlag {
	t.Helper()
	var out outputFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(&out, "index", "")
	fs.Bool("exact", false, "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return &out
}

func TestOutputFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absent", nil, ""},
		{"bare", []string{"-index"}, "index.json"},
		{"bare before another flag", []string{"-index", "-exact"}, "index.json"},
		{"with path", []string{"-index=out/idx.json"}, "out/idx.json"},
		{"explicit false", []string{"-index=false"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseOutput(t, tt.args...).resolve("index.json"); got != tt.want {
				t.Errorf("resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
