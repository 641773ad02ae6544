package main

import (
	"io"
	"testing"
)

func noEnv(string) string { return "" }

func TestRunExitCodes(t *testing.T) {
	log.Out = io.Discard

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"superres", "-h"}, 0},
		{"zero iterations", []string{"superres", "-i", "a.png", "-m", "m.onnx", "-ni", "0"}, 1},
		{"no model", []string{"superres", "-i", "a.png"}, 1},
		{"no input", []string{"superres", "-m", "m.onnx"}, 1},
		{"unknown flag", []string{"superres", "-bogus"}, 1},
		{"bad device", []string{"superres", "-i", "a.png", "-m", "m.onnx", "-d", "TPU"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args, noEnv); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestRunRecoversPanics(t *testing.T) {
	log.Out = io.Discard

	panicking := func(string) string { panic("environment unavailable") }
	if got := run([]string{"superres", "-i", "a.png", "-m", "m.onnx"}, panicking); got != 1 {
		t.Errorf("run = %d, want 1", got)
	}
}
