package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogrusAdapterPrefixesCategory(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	adapter := NewLogrusAdapter(l, "cotp")
	adapter.Debug("sent %d bytes", 42)

	out := buf.String()
	assert.Contains(t, out, "category=cotp")
	assert.Contains(t, out, "sent 42 bytes")
}

func TestNewSetsLevelFromFlags(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New(true, false).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(false, true).GetLevel())
	assert.Equal(t, logrus.WarnLevel, New(false, false).GetLevel())
}
