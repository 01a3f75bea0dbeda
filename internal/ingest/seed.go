package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
	"gopkg.in/yaml.v3"
)

// seedFile is the layout of a seed file: a list under "jobs".
//
//	[[jobs]]
//	id = "job-1"
//	customer_name = "Rose"
//	job_type = "cleaning"
//	scheduled_at = 2025-01-24T09:00:00Z
type seedFile struct {
	Jobs []model.Job `toml:"jobs" yaml:"jobs"`
}

// LoadSeedFile reads jobs from a TOML file, or YAML when the extension is
// .yaml or .yml.
func LoadSeedFile(path string) ([]*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse seed file %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("parse seed file %s: %w", path, err)
		}
	}
	jobs := make([]*model.Job, len(f.Jobs))
	for i := range f.Jobs {
		jobs[i] = &f.Jobs[i]
	}
	return jobs, nil
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Added   int
	Skipped int
}

// Seed ingests jobs in order. Jobs already present in any lane, or rejected
// earlier, are skipped, so reseeding a persistent store on restart neither
// duplicates nor revives jobs. Any other error stops seeding.
func Seed(ctx context.Context, ing Ingester, jobs []*model.Job, logger *slog.Logger) (SeedResult, error) {
	var res SeedResult
	for _, j := range jobs {
		_, err := ing.Ingest(ctx, j)
		switch {
		case err == nil:
			res.Added++
		case errors.Is(err, store.ErrAlreadyExists):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed job %q: %w", j.ID, err)
		}
	}
	if logger != nil {
		logger.Info("seeded pending lane", "added", res.Added, "skipped", res.Skipped)
	}
	return res, nil
}
