// Package dlog is the structured logging facility every TriBFT
// component receives at construction — never a back-pointer to the
// harness, per §9's capability-injection design note. It wraps zerolog
// and optionally fans records out to NATS JetStream for a remote
// collector process.
package dlog

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger is injected into every component's constructor and backs
// each component's on_log callback (§6).
type Logger struct {
	zerolog.Logger
	nodeID  string
	shardID string
}

// New builds a console logger for a node (zerolog's console writer,
// which writes to stdout).
func New(nodeID string, shardID string) *Logger {
	return &Logger{
		Logger:  zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger(),
		nodeID:  nodeID,
		shardID: shardID,
	}
}

// NewWithNATS builds a logger that also fans out to a JetStream subject.
// On connection failure the writer is discarded and logging falls back
// to the console writer (stdout) only — a logging sink must never become
// a liveness hazard.
func NewWithNATS(nodeID, shardID, natsAddress string) *Logger {
	natsWriter := NewNATSWriter()
	var writer io.Writer = zerolog.NewConsoleWriter()
	if err := natsWriter.Connect(natsAddress); err == nil {
		writer = io.MultiWriter(writer, natsWriter)
	}
	return &Logger{
		Logger:  zerolog.New(writer).With().Timestamp().Logger(),
		nodeID:  nodeID,
		shardID: shardID,
	}
}

func (l *Logger) event(logType string) *zerolog.Event {
	return l.Logger.Info().
		Str("log_type", logType).
		Time("ts", time.Now()).
		Str("node_id", l.nodeID).
		Str("shard_id", l.shardID)
}

// Component returns a log function that tags each message with the
// emitting component name; it is what every package receives as its
// on_log callback.
func (l *Logger) Component(name string) func(string) {
	return func(msg string) {
		l.event(name).Msg(msg)
	}
}

// Event exposes a free-form structured event for call sites that need
// extra fields beyond a plain message.
func (l *Logger) Event(logType string) *zerolog.Event {
	return l.event(logType)
}
