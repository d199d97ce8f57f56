package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/vidsprite/pkg/adapters/osfilesystem"
	"github.com/user/vidsprite/pkg/config"
)

func TestBuildConfig_Defaults(t *testing.T) {
	cmd := &GenerateCmd{Input: "talk.mp4", Output: "out"}

	cfg, err := cmd.buildConfig()
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.Output != "out" || !cfg.Spritesheet || cfg.Timelens || !cfg.KeyframesOnly {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %q", cfg.LogLevel)
	}
}

func TestBuildConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidsprite.yaml")
	os.WriteFile(path, []byte("output: from-file\ncolumns: 8\ninterval: 5s\nlog_level: warn\n"), 0644)

	interval := 500 * time.Millisecond
	rows := 3
	cmd := &GenerateCmd{
		Input:     "talk.mp4",
		Config:    path,
		Interval:  &interval,
		Rows:      &rows,
		Timelens:  true,
		AllFrames: true,
	}

	cfg, err := cmd.buildConfig()
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.Output != "from-file" || cfg.Columns != 8 {
		t.Errorf("expected file values to be kept, got %q %d", cfg.Output, cfg.Columns)
	}
	if cfg.Interval != config.Duration(interval) || cfg.Rows != 3 {
		t.Errorf("expected flag overrides, got %v %d", time.Duration(cfg.Interval), cfg.Rows)
	}
	if !cfg.Timelens || cfg.KeyframesOnly {
		t.Error("expected timelens on and all frames")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log level from file, got %q", cfg.LogLevel)
	}
}

func TestFilesystemFor_Local(t *testing.T) {
	local := osfilesystem.New()
	fs, err := filesystemFor(t.Context(), "out", local)
	if err != nil {
		t.Fatalf("filesystemFor failed: %v", err)
	}
	if fs != local {
		t.Error("expected local filesystem for plain paths")
	}
}
