package monitor

import (
	"time"

	"github.com/remedyops/remedy/internal/models"
	"github.com/remedyops/remedy/internal/platform"
	"github.com/remedyops/remedy/internal/registry"
)

// ToDeployment maps a platform deployment descriptor to the internal model.
func ToDeployment(info *platform.DeploymentInfo) models.Deployment {
	env := models.EnvironmentPreview
	switch info.Target {
	case "production":
		env = models.EnvironmentProduction
	case "development":
		env = models.EnvironmentDevelopment
	}

	d := models.Deployment{
		ID:          info.ID,
		Name:        info.Name,
		Status:      registry.MapPlatformStatus(info.ReadyState),
		Environment: env,
		Branch:      info.GitBranch,
		Commit:      info.GitCommit,
		URL:         info.URL,
	}
	if info.CreatedAt > 0 {
		d.CreatedAt = time.UnixMilli(info.CreatedAt)
	}
	if info.ReadyAt > 0 && info.BuildingAt > 0 {
		d.Duration = time.Duration(info.ReadyAt-info.BuildingAt) * time.Millisecond
	}
	return d
}
