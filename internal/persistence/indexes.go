package persistence

import (
	"embed"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Index naming is loaded once from the embedded spec, or from the YAML file
// named by INDEX_NAMING_YAML when operators need different prefixes.
const indexNamingEnv = "INDEX_NAMING_YAML"

//go:embed indexes.yaml
var indexSpecFS embed.FS

type indexSpec struct {
	ResultsPrefix string `yaml:"results_prefix"`
	StateIndex    string `yaml:"state_index"`
}

var (
	indexSpecOnce   sync.Once
	loadedIndexSpec indexSpec
)

var fallbackIndexSpec = indexSpec{
	ResultsPrefix: "anomaly-results-",
	StateIndex:    "anomaly-state",
}

func currentIndexSpec() indexSpec {
	indexSpecOnce.Do(func() {
		loadedIndexSpec = fallbackIndexSpec
		raw, err := readIndexSpec()
		if err != nil {
			return
		}
		var spec indexSpec
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return
		}
		if strings.TrimSpace(spec.ResultsPrefix) != "" {
			loadedIndexSpec.ResultsPrefix = strings.TrimSpace(spec.ResultsPrefix)
		}
		if strings.TrimSpace(spec.StateIndex) != "" {
			loadedIndexSpec.StateIndex = strings.TrimSpace(spec.StateIndex)
		}
	})
	return loadedIndexSpec
}

func readIndexSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(indexNamingEnv)); path != "" {
		return os.ReadFile(path)
	}
	return indexSpecFS.ReadFile("indexes.yaml")
}

// ResultsIndexName returns the job-scoped results index.
func ResultsIndexName(jobID string) string {
	return currentIndexSpec().ResultsPrefix + jobID
}

// StateIndexName returns the state index shared across jobs.
func StateIndexName() string {
	return currentIndexSpec().StateIndex
}
