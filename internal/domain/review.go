package domain

// PullRequest describes a submitted pull request.
//
// Example JSON representation:
//
//	{
//	    "number": 98,
//	    "title": "Fix nil map write in config reload",
//	    "branch": "fix/412-config-reload",
//	    "commits": 4,
//	    "files_changed": 11
//	}
type PullRequest struct {
	// Number is the host-assigned pull request number.
	Number int `json:"number"`

	// Title is the pull request title.
	Title string `json:"title"`

	// Branch is the head branch of the pull request.
	Branch string `json:"branch"`

	// Commits counts commits in the pull request.
	Commits int `json:"commits"`

	// FilesChanged counts files the pull request touches.
	FilesChanged int `json:"files_changed"`
}

// ReviewComment is a single inline or general review comment.
type ReviewComment struct {
	// Path is the file the comment refers to (empty for general comments).
	Path string `json:"path,omitempty"`

	// Body is the comment text.
	Body string `json:"body"`
}

// RequestedChange is one concrete change a reviewer requires before approval.
type RequestedChange struct {
	// Path is the file the change applies to.
	Path string `json:"path"`

	// Description says what must change.
	Description string `json:"description"`
}

// ReviewFeedback is one reviewer's verdict on a pull request.
type ReviewFeedback struct {
	// Reviewer identifies who reviewed.
	Reviewer string `json:"reviewer"`

	// Comments are the reviewer's comments.
	Comments []ReviewComment `json:"comments,omitempty"`

	// Approved is the reviewer's overall verdict.
	Approved bool `json:"approved"`

	// RequestedChanges lists changes required before approval.
	// Any non-empty list blocks the pull request regardless of Approved.
	RequestedChanges []RequestedChange `json:"requested_changes,omitempty"`
}

// Blocking reports whether this feedback blocks the pull request.
// A reviewer who approves but still requests changes blocks: the
// requested changes win the tie.
func (f ReviewFeedback) Blocking() bool {
	return len(f.RequestedChanges) > 0
}

// Conflict is a per-file record of a merge conflict.
type Conflict struct {
	// Path is the conflicting file.
	Path string `json:"path"`

	// AutoResolvable indicates the conflict is simple enough for
	// automated resolution.
	AutoResolvable bool `json:"auto_resolvable"`
}

// CheckFailure is a per-job record of a failing CI check.
type CheckFailure struct {
	// JobName identifies the failing CI job.
	JobName string `json:"job_name"`

	// Message is the failure output summary.
	Message string `json:"message"`

	// AutoFixable indicates the failure is simple enough for an
	// automated fix.
	AutoFixable bool `json:"auto_fixable"`
}
