// Package git provides Git operations for coxswain.
// This file defines types shared by the Runner.
package git

import "time"

// FileChange represents a changed file between two refs.
type FileChange struct {
	Path    string     // File path relative to repo root
	Status  ChangeType // Type of change (Added, Modified, Deleted, etc.)
	OldPath string     // For renamed files, the original path
}

// ChangeType represents the type of change for a file.
type ChangeType string

// Change type constants matching git --name-status letters.
const (
	ChangeAdded     ChangeType = "A"
	ChangeModified  ChangeType = "M"
	ChangeDeleted   ChangeType = "D"
	ChangeRenamed   ChangeType = "R"
	ChangeCopied    ChangeType = "C"
	ChangeUnmerged  ChangeType = "U"
	ChangeUntracked ChangeType = "?"
)

// Commit is a single entry from a commit log.
type Commit struct {
	SHA       string
	Message   string
	Author    string
	Timestamp time.Time
}

// DiffStat holds aggregate insertion/deletion counts between two refs.
type DiffStat struct {
	Files      int
	Insertions int
	Deletions  int
}

// IsZero returns true when the diff contains no changes.
func (s DiffStat) IsZero() bool {
	return s.Files == 0 && s.Insertions == 0 && s.Deletions == 0
}
