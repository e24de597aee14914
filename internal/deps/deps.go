// Package deps reports whether the external binaries and directories an
// import run relies on are present.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"auditimport/internal/config"
)

// Requirement defines an external dependency the importer relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries needed by the configured backend.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{{
		Name:        "WP-CLI",
		Command:     cfg.WPBinary(),
		Description: "Imports media and updates records in WordPress",
		Optional:    cfg.Store.Backend != config.BackendWPCLI,
	}}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckDirectories reports on the letters directory for now and, for the
// sqlite backend, the catalog location. The letters directory is optional
// because it usually appears only once letters are uploaded.
func CheckDirectories(cfg *config.Config, now time.Time) []Status {
	results := []Status{
		checkDir("Letters directory", cfg.LettersDir(now), "Upload location scanned by import", true),
		checkDir("Log directory", cfg.Paths.LogDir, "Holds the log file and batch lock", false),
	}
	if cfg.Store.Backend == config.BackendSQLite {
		results = append(results, checkDir("Catalog directory", filepath.Dir(cfg.Store.CatalogPath), "Holds the sqlite catalog", false))
	}
	return results
}

// Missing returns the names of required dependencies that are unavailable.
func Missing(statuses []Status) []string {
	var out []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s.Name)
		}
	}
	return out
}

func checkDir(name, path, description string, optional bool) Status {
	status := Status{Name: name, Command: path, Description: description, Optional: optional}
	info, err := os.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		status.Detail = "does not exist"
	case err != nil:
		status.Detail = err.Error()
	case !info.IsDir():
		status.Detail = "not a directory"
	default:
		status.Available = true
	}
	return status
}
