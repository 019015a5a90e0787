// Package analyze picks a typed fix strategy for a deployment error and
// obtains a root-cause analysis from the AI provider under rate-limit and
// backoff discipline.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/remedyops/remedy/internal/models"
)

// FileFetcher retrieves the current content of a repository file, used
// when a fix must edit an existing manifest.
type FileFetcher interface {
	GetFileContent(ctx context.Context, filePath, ref string) (string, error)
}

var (
	resolveRe       = regexp.MustCompile(`[Cc]an't resolve '([^']+)'`)
	resolveDirRe    = regexp.MustCompile(`in '([^']+)'`)
	syntaxFileRe    = regexp.MustCompile(`in ([^\s:]+\.(?:tsx?|jsx?|mjs|cjs)):?`)
	missingScriptRe = regexp.MustCompile(`[Mm]issing script:?\s*"?([A-Za-z0-9:_-]+)"?`)
)

// defaultEntryFile is the target when a syntax error names no file.
const defaultEntryFile = "src/index.tsx"

// SelectStrategy inspects the error text and builds the typed fix plan.
// The fetcher is consulted for manifest edits; it may be nil, in which
// case a minimal manifest fragment is written instead.
func SelectStrategy(ctx context.Context, errorText string, branch string, fetch FileFetcher) models.FixStrategy {
	lower := strings.ToLower(errorText)

	switch {
	case strings.Contains(lower, "module not found"), resolveRe.MatchString(errorText):
		return dependencyFix(ctx, errorText, branch, fetch)
	case strings.Contains(lower, "typescript error"), strings.Contains(errorText, "does not exist"):
		return syntaxFix(errorText)
	case strings.Contains(errorText, "npm ERR!"), missingScriptRe.MatchString(errorText):
		return buildScriptFix(ctx, errorText, branch, fetch)
	default:
		return syntaxFix(errorText)
	}
}

// dependencyFix handles unresolved imports. A relative path gets a stub
// source file at the resolved location; a package name gets added to the
// manifest's dependency list.
func dependencyFix(ctx context.Context, errorText, branch string, fetch FileFetcher) models.FixStrategy {
	target := ""
	if m := resolveRe.FindStringSubmatch(errorText); m != nil {
		target = m[1]
	}

	if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		base := "/"
		if m := resolveDirRe.FindStringSubmatch(errorText); m != nil {
			base = m[1]
		}
		filePath := strings.TrimPrefix(path.Join(base, target), "/")
		if path.Ext(filePath) == "" {
			filePath += ".tsx"
		}

		name := componentName(filePath)
		return models.FixStrategy{
			Type:        models.FixTypeDependency,
			Description: fmt.Sprintf("Create missing module %s", filePath),
			Changes: []models.FileChange{{
				Path:    filePath,
				Action:  models.FileActionCreate,
				Content: stubComponent(name),
			}},
			CommitMessage: fmt.Sprintf("fix: add missing module %s", filePath),
		}
	}

	manifest := editedManifest(ctx, branch, fetch, func(m map[string]any) {
		deps, _ := m["dependencies"].(map[string]any)
		if deps == nil {
			deps = make(map[string]any)
		}
		deps[target] = "latest"
		m["dependencies"] = deps
	})

	return models.FixStrategy{
		Type:        models.FixTypeDependency,
		Description: fmt.Sprintf("Add missing dependency %q to package.json", target),
		Changes: []models.FileChange{{
			Path:    "package.json",
			Action:  models.FileActionUpdate,
			Content: manifest,
		}},
		CommitMessage: fmt.Sprintf("fix: add dependency %s", target),
	}
}

// syntaxFix targets the file named by the error, defaulting to the entry
// file. The content is filled in from the AI provider's suggested patch.
func syntaxFix(errorText string) models.FixStrategy {
	target := defaultEntryFile
	if m := syntaxFileRe.FindStringSubmatch(errorText); m != nil {
		target = m[1]
	}

	return models.FixStrategy{
		Type:        models.FixTypeSyntax,
		Description: fmt.Sprintf("Correct syntax or type error in %s", target),
		Changes: []models.FileChange{{
			Path:   target,
			Action: models.FileActionUpdate,
		}},
		CommitMessage: fmt.Sprintf("fix: resolve type error in %s", target),
	}
}

// buildScriptFix adds the missing script to the manifest's script table.
func buildScriptFix(ctx context.Context, errorText, branch string, fetch FileFetcher) models.FixStrategy {
	script := "build"
	if m := missingScriptRe.FindStringSubmatch(errorText); m != nil {
		script = m[1]
	}

	command := "node index.js"
	if script == "build" {
		command = "next build"
	}

	manifest := editedManifest(ctx, branch, fetch, func(m map[string]any) {
		scripts, _ := m["scripts"].(map[string]any)
		if scripts == nil {
			scripts = make(map[string]any)
		}
		scripts[script] = command
		m["scripts"] = scripts
	})

	return models.FixStrategy{
		Type:        models.FixTypeBuildScript,
		Description: fmt.Sprintf("Add missing %q script to package.json", script),
		Changes: []models.FileChange{{
			Path:    "package.json",
			Action:  models.FileActionUpdate,
			Content: manifest,
		}},
		CommitMessage: fmt.Sprintf("fix: add %s script", script),
	}
}

// editedManifest fetches package.json, applies edit, and re-serializes.
// When the manifest cannot be fetched, a minimal fragment containing only
// the edit is produced.
func editedManifest(ctx context.Context, branch string, fetch FileFetcher, edit func(map[string]any)) string {
	manifest := make(map[string]any)
	if fetch != nil {
		if content, err := fetch.GetFileContent(ctx, "package.json", branch); err == nil {
			var parsed map[string]any
			if json.Unmarshal([]byte(content), &parsed) == nil {
				manifest = parsed
			}
		}
	}

	edit(manifest)

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out) + "\n"
}

// componentName derives an exported identifier from a file path.
func componentName(filePath string) string {
	base := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if base == "" {
		return "Stub"
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

func stubComponent(name string) string {
	return fmt.Sprintf(`export default function %s() {
  return null;
}
`, name)
}
