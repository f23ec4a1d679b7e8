package lumen

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capturedLogger(debug bool) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errBuf bytes.Buffer
	l := &DefaultLogger{
		debug:  debug,
		prefix: "test",
		out:    log.New(&out, "", 0),
		err:    log.New(&errBuf, "", 0),
	}
	return l, &out, &errBuf
}

func TestDefaultLoggerRoutesLevels(t *testing.T) {
	l, out, errBuf := capturedLogger(false)

	l.Infof("hello %d", 7)
	l.Warnf("careful")
	l.Errorf("broken")

	assert.Equal(t, "[test] INFO: hello 7\n", out.String())
	assert.Contains(t, errBuf.String(), "[test] WARN: careful")
	assert.Contains(t, errBuf.String(), "[test] ERROR: broken")
}

func TestDefaultLoggerDebugGate(t *testing.T) {
	quiet, out, _ := capturedLogger(false)
	quiet.Debugf("invisible")
	assert.Empty(t, out.String())

	loud, out2, _ := capturedLogger(true)
	loud.Debugf("visible")
	assert.Equal(t, "[test] DEBUG: visible\n", out2.String())
}

func TestDefaultLoggerOmitsEmptyPrefix(t *testing.T) {
	var out bytes.Buffer
	l := &DefaultLogger{out: log.New(&out, "", 0)}
	l.Infof("bare")
	assert.Equal(t, "INFO: bare\n", out.String())
}
