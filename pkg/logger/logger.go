package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers do not import logrus directly.
type Fields = logrus.Fields

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "message"},
	})
	log.SetLevel(logrus.InfoLevel)
}

// Configure sets the minimum level ("debug", "info", "warn", "error").
// Unknown levels fall back to info; development forces debug.
func Configure(level, environment string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if environment == "development" && lvl < logrus.DebugLevel {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Info(format string, v ...interface{}) {
	log.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

// WithFields returns an entry carrying structured fields, e.g.
// logger.WithFields(logger.Fields{"activityId": id}).Warn("...").
func WithFields(fields Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// LogStepError records a failed best-effort cascade step.
func LogStepError(step string, fields Fields, err error) {
	log.WithFields(fields).WithField("step", step).WithError(err).Warn("cascade step failed, continuing")
}
