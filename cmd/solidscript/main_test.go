package main

import (
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
	}{
		{
			name: "file with flags",
			args: []string{"--stats", "model.scad", "--no-cache"},
			want: options{file: "model.scad", stats: true, noCache: true},
		},
		{
			name: "inline expression",
			args: []string{"-e", "cube(1);"},
			want: options{expr: "cube(1);"},
		},
		{
			name: "export options",
			args: []string{"--stl", "out.stl", "--cells", "64", "model.scad"},
			want: options{file: "model.scad", stlPath: "out.stl", cells: 64},
		},
		{
			name: "help",
			args: []string{"--help"},
			want: options{help: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if err != nil {
				t.Fatalf("parseArgs(%v) failed: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("parseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgs_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing flag argument", []string{"-e"}},
		{"unknown flag", []string{"--fast"}},
		{"two input files", []string{"a.scad", "b.scad"}},
		{"non-numeric cells", []string{"--cells", "many"}},
		{"zero cells", []string{"--cells", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args); err == nil {
				t.Errorf("parseArgs(%v) accepted bad input", tt.args)
			}
		})
	}
}

