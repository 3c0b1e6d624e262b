package core

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogOutputAndLevel(t *testing.T) {
	var out bytes.Buffer
	SetLogOutput(&out)
	defer SetLogOutput(os.Stderr)
	defer SetLogLevel(LogLevelDebug)

	SetLogLevel(LogLevelWarn)
	LogInfo("hidden %d", 1)
	LogWarn("shown %d", 2)

	assert.NotContains(t, out.String(), "hidden 1")
	assert.Contains(t, out.String(), "shown 2")
}

func TestParseLogLevel(t *testing.T) {
	for name, want := range map[string]LogLevel{
		"debug":   LogLevelDebug,
		"":        LogLevelInfo,
		"WARNING": LogLevelWarn,
		" error ": LogLevelError,
	} {
		got, ok := ParseLogLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseLogLevel("verbose")
	assert.False(t, ok)
}
