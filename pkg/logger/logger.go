// ==============================================================================
// LOGGER PACKAGE - pkg/logger/logger.go
// ==============================================================================
package logger

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"
)

// Fields carries the structured context attached to a log entry, such as the
// session or submission identifiers threaded through the verification pipeline.
type Fields map[string]interface{}

type Logger interface {
	Info(message string, fields Fields)
	Error(message string, fields Fields)
	Warn(message string, fields Fields)
	Debug(message string, fields Fields)
	Fatal(message string, fields Fields)
}

// levelRank orders severities for minimum-level filtering.
var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
	"fatal": 4,
}

type jsonLogger struct {
	serviceName string
	minLevel    int
	logger      *log.Logger
}

// New builds a JSON logger for the named service. Entries below minLevel are
// dropped; an unknown level falls back to info.
func New(serviceName, minLevel string) Logger {
	rank, ok := levelRank[strings.ToLower(strings.TrimSpace(minLevel))]
	if !ok {
		rank = levelRank["info"]
	}
	return &jsonLogger{
		serviceName: serviceName,
		minLevel:    rank,
		logger:      log.New(os.Stdout, "", 0),
	}
}

func (l *jsonLogger) log(level, message string, fields Fields) {
	if levelRank[level] < l.minLevel {
		return
	}

	entry := Fields{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     level,
		"service":   l.serviceName,
		"message":   message,
	}

	for k, v := range fields {
		entry[k] = v
	}

	jsonData, _ := json.Marshal(entry)
	l.logger.Println(string(jsonData))
}

func (l *jsonLogger) Info(message string, fields Fields) {
	l.log("info", message, fields)
}

func (l *jsonLogger) Error(message string, fields Fields) {
	l.log("error", message, fields)
}

func (l *jsonLogger) Warn(message string, fields Fields) {
	l.log("warn", message, fields)
}

func (l *jsonLogger) Debug(message string, fields Fields) {
	l.log("debug", message, fields)
}

func (l *jsonLogger) Fatal(message string, fields Fields) {
	l.log("fatal", message, fields)
	os.Exit(1)
}

func NewNop() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (l *nopLogger) Info(message string, fields Fields)  {}
func (l *nopLogger) Error(message string, fields Fields) {}
func (l *nopLogger) Warn(message string, fields Fields)  {}
func (l *nopLogger) Debug(message string, fields Fields) {}
func (l *nopLogger) Fatal(message string, fields Fields) {}
