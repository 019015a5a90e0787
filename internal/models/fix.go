package models

// FixType categorizes the remediation approach for a deployment error.
type FixType string

const (
	FixTypeDependency  FixType = "dependency"
	FixTypeSyntax      FixType = "syntax"
	FixTypeConfig      FixType = "config"
	FixTypeBuildScript FixType = "build_script"
)

// FileAction describes what to do with a file in a fix.
type FileAction string

const (
	FileActionCreate FileAction = "create"
	FileActionUpdate FileAction = "update"
	FileActionDelete FileAction = "delete"
)

// FileChange is a single file modification within a fix strategy.
type FileChange struct {
	Path    string     `json:"path"`
	Content string     `json:"content,omitempty"`
	Action  FileAction `json:"action"`
}

// FixStrategy is the concrete, typed plan used to resolve one error.
// It is produced once per DeploymentError and immutable after creation.
type FixStrategy struct {
	Type          FixType      `json:"type"`
	Description   string       `json:"description"`
	Changes       []FileChange `json:"changes"`
	CommitMessage string       `json:"commit_message"`
}
