package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WatchedProject names one project the poller should track.
type WatchedProject struct {
	// Project is the deployment platform's project identifier.
	Project string `yaml:"project"`
	// Branch is the branch whose deployments are watched. Defaults to "main".
	Branch string `yaml:"branch,omitempty"`
	// Environment restricts monitoring to one environment. Empty watches all.
	Environment string `yaml:"environment,omitempty"`
}

// WatchList is the YAML file listing projects to monitor.
type WatchList struct {
	Projects []WatchedProject `yaml:"projects"`
}

// LoadWatchList reads the watch list from a YAML file.
func LoadWatchList(path string) (*WatchList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watch list: %w", err)
	}

	var list WatchList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing watch list: %w", err)
	}

	for i := range list.Projects {
		if list.Projects[i].Project == "" {
			return nil, fmt.Errorf("watch list entry %d: project is required", i)
		}
		if list.Projects[i].Branch == "" {
			list.Projects[i].Branch = "main"
		}
	}

	return &list, nil
}
