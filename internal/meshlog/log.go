// Package meshlog is the daemon's logging front door: a package-level
// logrus.Logger plus a handful of WithX helpers so every component logs
// with consistent fields instead of reaching for fmt.Printf.
package meshlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// SetLevel sets the logging level from a string such as "debug" or "warn".
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to structured JSON output, for deployments that
// ship logs to an aggregator instead of a terminal.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns an entry carrying a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns an entry carrying several fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithNode returns an entry tagged with this node's id, used by every
// component that needs to disambiguate logs in a multi-node test harness.
func WithNode(nodeID string) *logrus.Entry {
	return Logger.WithField("node_id", nodeID)
}

// WithPeer returns an entry tagged with a peer id.
func WithPeer(peerID string) *logrus.Entry {
	return Logger.WithField("peer_id", peerID)
}

func Debug(args ...interface{})                 { Logger.Debug(args...) }
func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }
func Info(args ...interface{})                  { Logger.Info(args...) }
func Infof(format string, args ...interface{})  { Logger.Infof(format, args...) }
func Warn(args ...interface{})                  { Logger.Warn(args...) }
func Warnf(format string, args ...interface{})  { Logger.Warnf(format, args...) }
func Error(args ...interface{})                 { Logger.Error(args...) }
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }
func Fatal(args ...interface{})                 { Logger.Fatal(args...) }
func Fatalf(format string, args ...interface{}) { Logger.Fatalf(format, args...) }
