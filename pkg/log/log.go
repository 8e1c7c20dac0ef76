package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

func InitLogs() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetReportCaller(true)

	return log
}

// SetLevel applies a textual level such as "debug" or "warn" to the logger.
func SetLevel(log *logrus.Logger, level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// WithRootURL create logger with the origin of the document being processed.
func WithRootURL(rootURL string, inner logrus.FieldLogger) logrus.FieldLogger {
	if rootURL == "" {
		return inner
	}
	return inner.WithField("root_url", rootURL)
}
