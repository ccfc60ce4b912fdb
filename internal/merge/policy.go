// Package merge folds agent and workflow branches into their parent
// branches, resolving file-level conflicts with a deterministic policy.
package merge

import (
	"fmt"
	"time"

	"github.com/mtessler/coxswain/internal/domain"
)

// decision is the outcome of the newest-file-wins policy for one file.
type decision struct {
	FilePath string
	Winner   string // domain.ConflictWinnerParent or domain.ConflictWinnerChild
	Reason   string
}

// decideWinner applies newest-file-wins: the side whose latest commit
// touching the file is newer keeps its version. Exact ties go to the child
// (the agent's branch) when preferChild is set, otherwise to the parent.
// Returns false when neither side has a commit touching the file, which the
// policy cannot resolve deterministically.
func decideWinner(path string, parentTime, childTime time.Time, preferChild bool) (decision, bool) {
	switch {
	case parentTime.IsZero() && childTime.IsZero():
		return decision{}, false
	case parentTime.IsZero():
		return decision{
			FilePath: path,
			Winner:   domain.ConflictWinnerChild,
			Reason:   "file only has commits on the child branch",
		}, true
	case childTime.IsZero():
		return decision{
			FilePath: path,
			Winner:   domain.ConflictWinnerParent,
			Reason:   "file only has commits on the parent branch",
		}, true
	case childTime.After(parentTime):
		return decision{
			FilePath: path,
			Winner:   domain.ConflictWinnerChild,
			Reason: fmt.Sprintf("child commit %s is newer than parent commit %s",
				childTime.Format(time.RFC3339), parentTime.Format(time.RFC3339)),
		}, true
	case parentTime.After(childTime):
		return decision{
			FilePath: path,
			Winner:   domain.ConflictWinnerParent,
			Reason: fmt.Sprintf("parent commit %s is newer than child commit %s",
				parentTime.Format(time.RFC3339), childTime.Format(time.RFC3339)),
		}, true
	case preferChild:
		return decision{
			FilePath: path,
			Winner:   domain.ConflictWinnerChild,
			Reason:   "timestamps tie; configured to prefer the child version",
		}, true
	default:
		return decision{
			FilePath: path,
			Winner:   domain.ConflictWinnerParent,
			Reason:   "timestamps tie; configured to prefer the parent version",
		}, true
	}
}
