package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	Init("info")
	defer SetLevel("info")

	ctx := context.Background()
	if L().Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug enabled at info level")
	}
	SetLevel("debug")
	if !Component("test").Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}
}
