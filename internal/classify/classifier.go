// Package classify tags log lines with severity and source and raises
// deployment errors when error-level lines appear.
package classify

import (
	"strings"

	"github.com/remedyops/remedy/internal/models"
)

// Source keyword lists, checked in order. The first list with a match wins.
var sourcePatterns = []struct {
	source   models.LogSource
	keywords []string
}{
	{models.LogSourceGit, []string{"git", "clone", "commit", "checkout"}},
	{models.LogSourceDependency, []string{"npm", "yarn", "pnpm", "install", "node_modules"}},
	{models.LogSourceBuild, []string{"build", "compile", "webpack", "tsc", "module not found"}},
	{models.LogSourceDeploy, []string{"deploy", "upload", "publish"}},
}

// ClassifyLevel derives a log level from the platform's tag when present,
// falling back to substring heuristics on the message.
func ClassifyLevel(tag, message string) models.LogLevel {
	switch strings.ToLower(tag) {
	case "stderr", "error", "fatal":
		return models.LogLevelError
	case "warn", "warning":
		return models.LogLevelWarn
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "error"):
		return models.LogLevelError
	case strings.Contains(lower, "warn"):
		return models.LogLevelWarn
	default:
		return models.LogLevelInfo
	}
}

// ClassifySource derives a source tag from keywords in the message.
func ClassifySource(message string) models.LogSource {
	lower := strings.ToLower(message)
	for _, p := range sourcePatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.source
			}
		}
	}
	return models.LogSourceRuntime
}
