package models

import "time"

// LogLevel classifies the severity of a log entry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogSource identifies which build phase produced a log entry.
type LogSource string

const (
	LogSourceBuild      LogSource = "build"
	LogSourceGit        LogSource = "git"
	LogSourceDependency LogSource = "dependency"
	LogSourceDeploy     LogSource = "deploy"
	LogSourceRuntime    LogSource = "runtime"
)

// LogEntry represents a single log line emitted by a deployment.
// Entries are immutable once appended; ordering is append order.
type LogEntry struct {
	ID           string    `json:"id"`
	DeploymentID string    `json:"deployment_id"`
	Timestamp    time.Time `json:"timestamp"`
	Level        LogLevel  `json:"level"`
	Message      string    `json:"message"`
	Source       LogSource `json:"source"`
}
