package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_DefaultBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
	assert.True(t, GetLogger().IsInfoEnabled())
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{"debug", true, true},
		{"INFO", false, true},
		{"warn", false, false},
		{"error", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(Config{Level: tt.level}, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.IsDebugEnabled())
			assert.Equal(t, tt.info, l.IsInfoEnabled())
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(Config{File: FileConfig{Enabled: true}}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Format: FormatJSON}, &buf)
	require.NoError(t, err)

	l.WithField("slot", "ddcc_port").WithError(errors.New("boom")).Info("learned port")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "learned port", line["msg"])
	assert.Equal(t, "ddcc_port", line["slot"])
	assert.Equal(t, "boom", line["error"])
}

func TestNew_Pattern(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Format: FormatPattern, Pattern: "[%level] %msg {%field}"}, &buf)
	require.NoError(t, err)

	l.WithFields(map[string]interface{}{"port": 1025, "old": 0}).Warn("changed")
	assert.Equal(t, "[WARNING] changed {old=0 port=1025}\n", buf.String())
}

func TestNew_FileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hpsdrdump.log")
	var buf bytes.Buffer
	l, err := New(Config{File: FileConfig{Enabled: true, Path: path, MaxSizeMB: 1}}, &buf)
	require.NoError(t, err)

	l.Info("to both")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestInit_ReplacesGlobal(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	require.NoError(t, Init(Config{Level: "debug"}))
	assert.True(t, GetLogger().IsDebugEnabled())
	assert.Error(t, Init(Config{Level: "nope"}))
}

func TestFormatter_Caller(t *testing.T) {
	f := &formatter{pattern: "%caller %func", time: DefaultTime}
	e := logrus.NewEntry(logrus.New())
	e.Time = time.Now()
	out, err := f.Format(e)
	require.NoError(t, err)
	assert.Equal(t, "unknown unknown\n", string(out))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	m := NewMultiWriter().Add(&a).Add(failingWriter{}).Add(&b)
	n, err := m.Write([]byte("x"))
	assert.Equal(t, 1, n)
	assert.Error(t, err)
	assert.Equal(t, "x", a.String())
	assert.Equal(t, "x", b.String())
}
