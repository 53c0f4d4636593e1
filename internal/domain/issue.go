// Package domain provides shared domain types for the Gaffer workflow scheduler.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case per architecture requirements.
package domain

import (
	"strconv"
	"strings"

	"github.com/gafferworks/gaffer/internal/constants"
)

// Issue is an immutable snapshot of a tracker issue, taken at assignment
// time. The workflow threads the same snapshot through every transition;
// host-side edits after assignment are not observed.
//
// Example JSON representation:
//
//	{
//	    "number": 412,
//	    "title": "Fix nil map write in config reload",
//	    "body": "Reload panics when ...",
//	    "labels": ["bug", "autonomous"],
//	    "priority": "high",
//	    "estimated_hours": 2.5
//	}
type Issue struct {
	// Number is the host-assigned issue number.
	Number int `json:"number"`

	// Title is the issue title at assignment time.
	Title string `json:"title"`

	// Body is the issue description at assignment time.
	Body string `json:"body,omitempty"`

	// Labels are the issue labels at assignment time.
	Labels []string `json:"labels,omitempty"`

	// Priority orders issues for assignment.
	Priority constants.Priority `json:"priority"`

	// EstimatedHours is the tracker's effort estimate (nil if none).
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

// HasLabel reports whether the issue carries the given label.
// Comparison is case-insensitive, matching host behavior.
func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// BranchPrefix returns the branch naming prefix for this issue based on
// its labels, defaulting to the feature prefix.
func (i Issue) BranchPrefix() string {
	switch {
	case i.HasLabel("bug"):
		return constants.BranchPrefixFix
	case i.HasLabel("chore"):
		return constants.BranchPrefixChore
	case i.HasLabel("documentation"), i.HasLabel("docs"):
		return constants.BranchPrefixDocs
	case i.HasLabel("test"):
		return constants.BranchPrefixTest
	default:
		return constants.BranchPrefixFeat
	}
}

// maxBranchSlugLen bounds the slugified title portion of a branch name.
const maxBranchSlugLen = 40

// BranchName returns the canonical working branch for this issue:
// prefix, issue number, and a slugified title, e.g.
// "fix/412-nil-map-write-in-config-reload".
func (i Issue) BranchName() string {
	var b strings.Builder
	b.WriteString(i.BranchPrefix())
	b.WriteString(strconv.Itoa(i.Number))

	if slug := slugify(i.Title); slug != "" {
		b.WriteByte('-')
		b.WriteString(slug)
	}
	return b.String()
}

// slugify lowercases the title and collapses every non-alphanumeric run
// into a single hyphen, truncated to a branch-friendly length.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
		if b.Len() >= maxBranchSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// AgentID identifies one worker slot. It is opaque: equality is by value
// and no structure is assumed.
type AgentID string

// String returns the string representation of the AgentID.
// This implements fmt.Stringer for convenient logging and debugging.
func (a AgentID) String() string {
	return string(a)
}

// Workspace describes the branch and environment prepared for one
// assignment. Created when an issue is assigned and never mutated; a
// fresh value is created on reassignment.
type Workspace struct {
	// BranchName is the working branch created for the issue.
	BranchName string `json:"branch_name"`

	// BaseBranch is the branch the work will merge into.
	BaseBranch string `json:"base_branch"`

	// SetupComplete indicates the worktree checkout and tooling are in place.
	SetupComplete bool `json:"setup_complete"`

	// DependenciesInstalled indicates project dependencies are installed.
	DependenciesInstalled bool `json:"dependencies_installed"`
}

// Ready reports whether the workspace is fully prepared for work.
func (w Workspace) Ready() bool {
	return w.SetupComplete && w.DependenciesInstalled
}
