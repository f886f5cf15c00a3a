package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithField creates a new logger entry with a single field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithError creates a new logger entry with an error field
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// Decision logs an authorization decision with structured format
func (l *Logger) Decision(actorID, resource, operation string, allowed bool, reason string) {
	entry := l.Logger.WithFields(logrus.Fields{
		"authz":     true,
		"actor_id":  actorID,
		"resource":  resource,
		"operation": operation,
		"allowed":   allowed,
		"reason":    reason,
	})

	if allowed {
		entry.Debug("Access granted")
	} else {
		entry.Info("Access denied")
	}
}

// Security logs security-related events
func (l *Logger) Security(event string, actorID string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"security": true,
		"event":    event,
		"actor_id": actorID,
		"details":  details,
	}).Warn("Security event")
}

// PHIAccess logs PHI access events with enhanced security context
func (l *Logger) PHIAccess(actorID, patientID, operation, resource string, allowed bool) {
	entry := l.Logger.WithFields(logrus.Fields{
		"phi_access": true,
		"actor_id":   actorID,
		"patient_id": patientID,
		"operation":  operation,
		"resource":   resource,
		"allowed":    allowed,
		"sensitive":  true,
	})

	if allowed {
		entry.Info("PHI access granted")
	} else {
		entry.Warn("PHI access denied")
	}
}

// HTTPRequest logs HTTP request events
func (l *Logger) HTTPRequest(method, path, clientIP string, statusCode int, durationMs int64) {
	entry := l.Logger.WithFields(logrus.Fields{
		"http_request": true,
		"method":       method,
		"path":         path,
		"client_ip":    clientIP,
		"status_code":  statusCode,
		"duration_ms":  durationMs,
	})

	if statusCode >= 400 {
		entry.Warn("HTTP request completed with error")
	} else {
		entry.Info("HTTP request completed")
	}
}
