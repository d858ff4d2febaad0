package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestFlagParsing(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		if !IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = false; want true", v)
		}
		if IsFalsy(v) {
			t.Fatalf("IsFalsy(%q) = true; want false", v)
		}
	}
	for _, v := range []string{"0", "false", "NO", " n ", "off", "Off"} {
		if IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = true; want false", v)
		}
		if !IsFalsy(v) {
			t.Fatalf("IsFalsy(%q) = false; want true", v)
		}
	}
	// Neither truthy nor falsy: the caller keeps its default.
	for _, v := range []string{"", "  ", "maybe", "2"} {
		if IsTruthy(v) || IsFalsy(v) {
			t.Fatalf("%q classified as a flag value; want neither", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(blanks) = %q; want \"\"", got)
	}
	// Returns the winning value as given, spacing preserved.
	if got := FirstNonEmpty("   ", "  otel:4317  ", "localhost:4317"); got != "  otel:4317  " {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "  otel:4317  ")
	}
	if got := FirstNonEmpty("primary", "fallback"); got != "primary" {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "primary")
	}
}
