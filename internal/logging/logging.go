// Package logging builds the single process-wide logrus logger every other
// component constructor takes as a parameter, grounded on cmd/dexserver's
// log "github.com/sirupsen/logrus" / log.New() usage — extended with the
// level and file destination the indexer's config exposes.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger from the level and file settings under A1's
// Config.Logging. An empty file writes to stderr, matching logrus's
// default. An unparseable level falls back to info rather than failing
// startup over a typo in a config file.
func New(level, file string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file %s: %w", file, err)
		}
		logger.SetOutput(f)
	}

	return logger, nil
}

// WithComponent returns an entry pre-tagged with component=name, the field
// every constructor attaches to its log lines.
func WithComponent(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
