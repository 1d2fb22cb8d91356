package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/h-a-n-a/dts-up/internal/diag"
)

func TestFatalMarksHasErrorsAndWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.Fatal(diag.New(diag.LinkError, "/index.d.ts", "A", "no export named A"))

	assert.True(t, log.HasErrors())
	assert.Contains(t, buf.String(), "/index.d.ts")
	assert.Contains(t, buf.String(), "A")
}

func TestWarnIsSuppressedBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelError)

	log.Warn("dropped export default expr in %s", "/a.d.ts")

	assert.Empty(t, buf.String())
}

func TestInfoIsEmittedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.Info("bundled %d modules", 3)

	assert.True(t, strings.Contains(buf.String(), "bundled 3 modules"))
}
