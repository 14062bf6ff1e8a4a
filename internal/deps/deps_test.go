package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"podclean/internal/config"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "echo 'present version 6.1.1 Copyright (c) the authors'\n")
	quiet := writeStub(t, binDir, "quiet", "exit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Quiet", Command: quiet, Optional: true},
		{Name: "Blank"},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available || results[0].Version != "6.1.1" {
		t.Fatalf("expected first requirement available with version, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Command != "clearly-not-present-binary" || results[1].Detail == "" {
		t.Fatalf("unexpected missing status: %#v", results[1])
	}

	if !results[2].Available || results[2].Version != "" || results[2].Detail == "" {
		t.Fatalf("expected available binary with unrecognised banner detail, got %#v", results[2])
	}
	if results[3].Available || results[3].Detail != "command not configured" {
		t.Fatalf("expected blank command to be reported, got %#v", results[3])
	}

	missing := Missing(results)
	if len(missing) != 2 || missing[0] != "Missing" || missing[1] != "Blank" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected commands: %q %q", reqs[0].Command, reqs[1].Command)
	}
}

func TestParseVersionBanner(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ffmpeg version 7.0.2-static https://johnvansickle.com\nbuilt with gcc\n", "7.0.2-static", true},
		{"ffprobe version n6.1 Copyright (c) 2007-2023\n", "n6.1", true},
		{"", "", false},
		{"nothing useful here\n", "", false},
	}
	for _, tt := range tests {
		got, ok := parseVersionBanner([]byte(tt.in))
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseVersionBanner(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
