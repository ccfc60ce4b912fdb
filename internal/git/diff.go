// Package git provides Git operations for coxswain.
// This file provides diff and log queries used for change inspection.
package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mtessler/coxswain/internal/ctxutil"
)

// logFieldSep separates fields in the custom log format. Unit separator is
// safe because it cannot appear in commit subjects.
const logFieldSep = "\x1f"

// StatusPorcelain returns the machine-readable working tree status.
// Both staged and unstaged changes are reported; untracked files appear
// with ChangeUntracked.
func (r *CLIRunner) StatusPorcelain(ctx context.Context) ([]FileChange, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	output, err := RunCommand(ctx, r.workDir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return parseStatusOutput(output), nil
}

// CommitsBetween lists commits reachable from head but not base, oldest
// first.
func (r *CLIRunner) CommitsBetween(ctx context.Context, base, head string) ([]Commit, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	format := strings.Join([]string{"%H", "%an", "%at", "%s"}, logFieldSep)
	output, err := RunCommand(ctx, r.workDir, "log", "--reverse",
		"--format="+format, base+".."+head)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits %s..%s: %w", base, head, err)
	}
	if output == "" {
		return nil, nil
	}

	var commits []Commit
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(line, logFieldSep, 4)
		if len(parts) != 4 {
			continue
		}
		unix, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			SHA:       parts[0],
			Author:    parts[1],
			Timestamp: time.Unix(unix, 0).UTC(),
			Message:   parts[3],
		})
	}
	return commits, nil
}

// DiffNameStatus lists files changed between two refs.
func (r *CLIRunner) DiffNameStatus(ctx context.Context, base, head string) ([]FileChange, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	output, err := RunCommand(ctx, r.workDir, "diff", "--name-status", base, head)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", base, head, err)
	}
	return parseNameStatusOutput(output), nil
}

// DiffStat returns aggregate file/insertion/deletion counts between two refs.
func (r *CLIRunner) DiffStat(ctx context.Context, base, head string) (DiffStat, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return DiffStat{}, err
	}

	output, err := RunCommand(ctx, r.workDir, "diff", "--numstat", base, head)
	if err != nil {
		return DiffStat{}, fmt.Errorf("failed to diff %s..%s: %w", base, head, err)
	}

	var stat DiffStat
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		stat.Files++
		// Binary files report "-" for both counts.
		if n, err := strconv.Atoi(fields[0]); err == nil {
			stat.Insertions += n
		}
		if n, err := strconv.Atoi(fields[1]); err == nil {
			stat.Deletions += n
		}
	}
	return stat, nil
}

// DiffText returns the full textual diff between two refs.
func (r *CLIRunner) DiffText(ctx context.Context, base, head string) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	output, err := RunCommand(ctx, r.workDir, "diff", base, head)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s..%s: %w", base, head, err)
	}
	return output, nil
}

// LatestCommitTimeForFile returns the author timestamp of the newest commit
// on ref that touched path. Returns the zero time when no commit on ref
// touched the path.
func (r *CLIRunner) LatestCommitTimeForFile(ctx context.Context, ref, path string) (time.Time, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return time.Time{}, err
	}

	output, err := RunCommand(ctx, r.workDir, "log", "-1", "--format=%at", ref, "--", path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest commit time for %s on %s: %w", path, ref, err)
	}
	if output == "" {
		return time.Time{}, nil
	}

	unix, err := strconv.ParseInt(output, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse commit timestamp %q: %w", output, err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

// parseNameStatusOutput parses `git diff --name-status` output lines.
// Rename and copy lines carry a similarity score and two paths:
// "R100\told\tnew".
func parseNameStatusOutput(output string) []FileChange {
	if output == "" {
		return nil
	}

	var changes []FileChange
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 || parts[0] == "" {
			continue
		}

		status := ChangeType(parts[0][:1])
		change := FileChange{Status: status, Path: parts[1]}
		if (status == ChangeRenamed || status == ChangeCopied) && len(parts) >= 3 {
			change.OldPath = parts[1]
			change.Path = parts[2]
		}
		changes = append(changes, change)
	}
	return changes
}

// parseStatusOutput parses `git status --porcelain` output lines.
// Each line is "XY path" where X is the index status and Y the worktree
// status.
func parseStatusOutput(output string) []FileChange {
	if output == "" {
		return nil
	}

	var changes []FileChange
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}

		x, y := line[0], line[1]
		path := strings.TrimSpace(line[3:])
		// Quoted paths contain special characters; strip the quotes.
		path = strings.Trim(path, `"`)

		change := FileChange{Path: path}
		switch {
		case x == '?' && y == '?':
			change.Status = ChangeUntracked
		case x == 'U' || y == 'U':
			change.Status = ChangeUnmerged
		case x == 'R':
			change.Status = ChangeRenamed
			if idx := strings.Index(path, " -> "); idx >= 0 {
				change.OldPath = path[:idx]
				change.Path = path[idx+4:]
			}
		case x != ' ' && x != '?':
			change.Status = ChangeType(x)
		default:
			change.Status = ChangeType(y)
		}
		changes = append(changes, change)
	}
	return changes
}
