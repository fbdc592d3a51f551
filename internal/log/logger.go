package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(level, format string) (*logrus.Logger, error) {
	var log = logrus.New()
	switch format {
	case "", "text":
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		log.Formatter = new(logrus.JSONFormatter)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.Level = lvl
	log.Out = os.Stdout
	return log, nil
}

// Discard returns an entry that drops everything. Used by tests.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.Out = discard{}
	log.Level = logrus.PanicLevel
	return logrus.NewEntry(log)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
