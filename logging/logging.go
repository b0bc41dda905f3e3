// Package logging adapts a logrus.Logger to the logger.Logger interface the
// rest of this client's packages (and the teacher's MMS/COTP/TPKT layers
// this module was grown from) were written against, so callers configure
// logging once, in one place, with logrus's formatter/level machinery.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/slonegd/mmsreportd/logger"
)

// adapter implements logger.Logger by forwarding to a category-tagged
// logrus entry at Debug level.
type adapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps l, pre-binding a "category" field so every Debug
// call from this category shows up labeled in the shared log stream.
func NewLogrusAdapter(l *logrus.Logger, category string) logger.Logger {
	if category == "" {
		return &adapter{entry: logrus.NewEntry(l)}
	}
	return &adapter{entry: l.WithField("category", category)}
}

func (a *adapter) Debug(format string, v ...any) {
	a.entry.Debugf(format, v...)
}

// New builds a logrus.Logger configured the way this client runs it: text
// formatter with full timestamps, level driven by the debug/verbose flags
// surfaced on the CLI.
func New(debug, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch {
	case debug:
		l.SetLevel(logrus.DebugLevel)
	case verbose:
		l.SetLevel(logrus.InfoLevel)
	default:
		l.SetLevel(logrus.WarnLevel)
	}
	return l
}
