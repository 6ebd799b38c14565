package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLogger(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	quiet := NewWithWriter(false, &buf)
	quiet.Debugf("decoded %d classes", 3)
	if buf.Len() != 0 {
		t.Errorf("non-verbose Debugf wrote %q", buf.String())
	}
	quiet.Warnf("skipping %s", "a.jar")
	if got := buf.String(); got != "warning: skipping a.jar\n" {
		t.Errorf("Warnf wrote %q", got)
	}

	buf.Reset()
	loud := NewWithWriter(true, &buf)
	if !loud.IsVerbose() {
		t.Error("IsVerbose() should be true")
	}
	loud.Debugf("decoded %d classes", 3)
	if !strings.Contains(buf.String(), "[debug] decoded 3 classes") {
		t.Errorf("Debugf wrote %q", buf.String())
	}
}

func TestNilAndNop(t *testing.T) {
	var l *Logger
	l.Debugf("ignored")
	l.Warnf("ignored")
	if l.IsVerbose() {
		t.Error("nil logger should not be verbose")
	}
	Nop().Warnf("discarded")
}
