package registry

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/remedyops/remedy/internal/models"
)

// genLogBatch generates a batch of log entries with possibly repeated
// messages.
func genLogBatch() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf(
		"cloning repository",
		"installing dependencies",
		"Module not found",
		"build failed",
		"retrying",
	)).Map(func(messages []string) []models.LogEntry {
		batch := make([]models.LogEntry, len(messages))
		for i, m := range messages {
			batch[i] = models.LogEntry{Message: m}
		}
		return batch
	})
}

// TestAppendLogsIdempotent verifies that re-appending any batch a second
// time appends nothing, so a poll cycle that sees the same platform
// events twice never duplicates log lines.
func TestAppendLogsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("second append of the same batch is empty", prop.ForAll(
		func(batch []models.LogEntry) bool {
			r := New(nil)
			r.Upsert(models.Deployment{ID: "dep-1"})

			first, err := r.AppendLogs("dep-1", batch)
			if err != nil {
				return false
			}
			second, err := r.AppendLogs("dep-1", batch)
			if err != nil {
				return false
			}

			logs, err := r.Logs("dep-1")
			if err != nil {
				return false
			}
			return len(second) == 0 && len(logs) == len(first)
		},
		genLogBatch(),
	))

	properties.Property("append count never exceeds batch size", prop.ForAll(
		func(batch []models.LogEntry) bool {
			r := New(nil)
			r.Upsert(models.Deployment{ID: "dep-1"})

			appended, err := r.AppendLogs("dep-1", batch)
			return err == nil && len(appended) <= len(batch)
		},
		genLogBatch(),
	))

	properties.TestingRun(t)
}
