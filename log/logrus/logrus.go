// Package logrus adapts a *logrus.Entry to the artifactcache Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/fraware/artifactcache"
)

var _ artifactcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f artifactcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f artifactcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l LogrusLogger) Warn(msg string, f artifactcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l LogrusLogger) Error(msg string, f artifactcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
