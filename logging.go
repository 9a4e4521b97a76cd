package badezimmer

import (
	"os"

	"github.com/sirupsen/logrus"
)

// defaultLogger builds a JSON-structured logrus entry, the Go analog of
// original_source/src/badezimmer/logger.py's setup_logger: one JSON handler
// on stdout, no propagation concerns (logrus has no parent loggers), debug
// level by default. Callers needing a shared logger across engines and the
// transport server should build one with this (or their own) and pass it via
// WithLogger and ServeListener's log parameter; there is no package-level
// instance.
func defaultLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
			logrus.FieldKeyFunc:  "function",
		},
	})
	return logrus.NewEntry(log)
}
