package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigure_RespectsLevel(t *testing.T) {
	defer Set(L())

	Configure(Options{Level: "error", JSON: true})
	if L().Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be disabled at error level")
	}
	if !L().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("error should be enabled at error level")
	}
}

func TestSet_Observer(t *testing.T) {
	defer Set(L())

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	L().Info("hello", zap.String("k", "v"))

	if logs.Len() != 1 || logs.All()[0].Message != "hello" {
		t.Fatalf("unexpected logs: %+v", logs.All())
	}

	Set(nil)
	if L() == nil {
		t.Fatal("Set(nil) must install a no-op logger")
	}
}

func TestInitFromEnv(t *testing.T) {
	defer Set(L())

	t.Setenv("BEANEXPORT_LOG_LEVEL", "debug")
	t.Setenv("BEANEXPORT_LOG_JSON", "true")
	InitFromEnv()
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be enabled from env")
	}
}
