package domain

import "time"

// WorkProgress accumulates while an issue is in progress. All counters are
// monotonic for the lifetime of one work session; resuming after a
// resolved blocker resets CompletionPercentage to a partial value, never
// to zero, so prior effort keeps its credit.
//
// Example JSON representation:
//
//	{
//	    "commits_made": 4,
//	    "files_changed": 11,
//	    "tests_written": 3,
//	    "elapsed_minutes": 95,
//	    "completion_percentage": 62.5
//	}
type WorkProgress struct {
	// CommitsMade counts commits created in the working branch.
	CommitsMade int `json:"commits_made"`

	// FilesChanged counts distinct files touched so far.
	FilesChanged int `json:"files_changed"`

	// TestsWritten counts test cases added so far.
	TestsWritten int `json:"tests_written"`

	// ElapsedMinutes is wall-clock minutes since work started.
	ElapsedMinutes int `json:"elapsed_minutes"`

	// CompletionPercentage is the agent's own estimate of how done the
	// work is, in [0, 100].
	CompletionPercentage float64 `json:"completion_percentage"`
}

// Accumulate returns a copy with the given commit and file counts added.
// Counters only grow; negative deltas are ignored.
func (p WorkProgress) Accumulate(commits, filesChanged int) WorkProgress {
	if commits > 0 {
		p.CommitsMade += commits
	}
	if filesChanged > 0 {
		p.FilesChanged += filesChanged
	}
	return p
}

// WithElapsed returns a copy with ElapsedMinutes replaced.
func (p WorkProgress) WithElapsed(minutes int) WorkProgress {
	if minutes > p.ElapsedMinutes {
		p.ElapsedMinutes = minutes
	}
	return p
}

// ResumeAt returns a copy with CompletionPercentage force-set to the given
// resume value. Counters are preserved: resuming is strictly forward
// progress, never a reset.
func (p WorkProgress) ResumeAt(percent float64) WorkProgress {
	p.CompletionPercentage = percent
	return p
}

// CompletedWork is the terminal summary of a successfully merged work item.
type CompletedWork struct {
	// Issue is the snapshot the workflow started with.
	Issue Issue `json:"issue"`

	// Commits counts commits that landed with the merge.
	Commits int `json:"commits"`

	// FilesChanged counts files the merge touched.
	FilesChanged int `json:"files_changed"`

	// TestsAdded counts test cases the merge added.
	TestsAdded int `json:"tests_added"`

	// CompletedAt is when the merge completed.
	CompletedAt time.Time `json:"completed_at"`
}
