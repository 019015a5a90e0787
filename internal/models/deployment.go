package models

import "time"

// DeploymentStatus represents the current state of a deployment.
type DeploymentStatus string

const (
	DeploymentStatusQueued   DeploymentStatus = "queued"
	DeploymentStatusBuilding DeploymentStatus = "building"
	DeploymentStatusReady    DeploymentStatus = "ready"
	DeploymentStatusError    DeploymentStatus = "error"
	DeploymentStatusCanceled DeploymentStatus = "canceled"
)

// IsTerminal reports whether the status is a final state: no further
// polling is useful once a deployment reaches it.
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusReady || s == DeploymentStatusError || s == DeploymentStatusCanceled
}

// Environment identifies the target environment of a deployment.
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentPreview     Environment = "preview"
	EnvironmentDevelopment Environment = "development"
)

// Deployment represents one attempt to build and publish a project revision.
type Deployment struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      DeploymentStatus  `json:"status"`
	Environment Environment       `json:"environment"`
	Branch      string            `json:"branch"`
	Commit      string            `json:"commit,omitempty"`
	URL         string            `json:"url,omitempty"`
	Duration    time.Duration     `json:"duration,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Logs        []LogEntry        `json:"logs,omitempty"`
	Errors      []DeploymentError `json:"errors,omitempty"`
}
