// Package display holds the format-neutral results that commands hand to
// a renderer.
package display

import (
	"time"

	"github.com/arthur-debert/rioship/pkg/history"
	"github.com/arthur-debert/rioship/pkg/syncplan"
)

// BuildResult lists assembled bundles.
type BuildResult struct {
	Bundles []BundleInfo `json:"bundles" yaml:"bundles"`
}

// BundleInfo describes one assembled bundle.
type BundleInfo struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path" yaml:"path"`
	MainEntry string `json:"main_entry" yaml:"main_entry"`
	Entries   int    `json:"entries" yaml:"entries"`
	Size      int64  `json:"size" yaml:"size"`
	Checksum  string `json:"sha256" yaml:"sha256"`
}

// PlanResult is the plan computed for a target.
type PlanResult struct {
	Target string             `json:"target" yaml:"target"`
	Plan   *syncplan.SyncPlan `json:"plan" yaml:"plan"`
}

// RunResult summarizes a deploy run.
type RunResult struct {
	ID       string        `json:"id" yaml:"id"`
	Target   string        `json:"target" yaml:"target"`
	State    string        `json:"state" yaml:"state"`
	DryRun   bool          `json:"dry_run" yaml:"dry_run"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Bundles  []string      `json:"bundles,omitempty" yaml:"bundles,omitempty"`
	Uploaded int           `json:"uploaded" yaml:"uploaded"`
	Deleted  int           `json:"deleted" yaml:"deleted"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	// Plan is included for dry runs.
	Plan *syncplan.SyncPlan `json:"plan,omitempty" yaml:"plan,omitempty"`
}

// TargetsResult lists registered targets.
type TargetsResult struct {
	Targets []TargetInfo `json:"targets" yaml:"targets"`
}

// TargetInfo describes one target. Error is set when it does not resolve.
type TargetInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Transport string   `json:"transport,omitempty" yaml:"transport,omitempty"`
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	Team      int      `json:"team,omitempty" yaml:"team,omitempty"`
	Debug     bool     `json:"debug" yaml:"debug"`
	Artifacts []string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// HistoryResult lists past runs.
type HistoryResult struct {
	Runs []history.Record `json:"runs" yaml:"runs"`
}

// MessageResult is a plain message.
type MessageResult struct {
	Message string `json:"message" yaml:"message"`
}
