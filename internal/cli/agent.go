package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// AddAgentCommand adds the agent command group to the root command.
func AddAgentCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage per-agent worktrees and merges",
	}

	cmd.AddCommand(newAgentCreateCmd())
	cmd.AddCommand(newAgentChangesCmd())
	cmd.AddCommand(newAgentCommitCmd())
	cmd.AddCommand(newAgentMergeCmd())
	cmd.AddCommand(newAgentCleanupCmd())

	root.AddCommand(cmd)
}

func newAgentCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <agent-id>",
		Short: "Provision an isolated worktree and branch for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			wt, err := app.coord.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, wt, func(w io.Writer) {
				line(w, "path: %s", wt.Path)
				line(w, "branch: %s", wt.Branch)
				line(w, "base: %s", wt.BaseSHA)
			})
		},
	}
}

func newAgentChangesCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "changes <agent-id>",
		Short: "List files the agent changed in its worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			changes, err := app.coord.Changes(cmd.Context(), args[0], since)
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, changes, func(w io.Writer) {
				if len(changes) == 0 {
					line(w, "no changes")
					return
				}
				for _, c := range changes {
					line(w, "%s %s", c.Status, c.Path)
				}
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "diff from this commit instead of the worktree base")
	return cmd
}

func newAgentCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit <agent-id>",
		Short: "Commit everything in the agent's worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			sha, err := app.coord.CommitWork(cmd.Context(), args[0], message)
			if err != nil {
				return err
			}
			payload := map[string]string{"commit_sha": sha}
			return render(cmd, os.Stdout, payload, func(w io.Writer) {
				if sha == "" {
					line(w, "nothing to commit")
					return
				}
				line(w, "committed %s", sha)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newAgentMergeCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "merge <agent-id>",
		Short: "Merge the agent's branch into trunk or a workflow branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.engine.MergeToParent(cmd.Context(), args[0], target)
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, result, func(w io.Writer) {
				line(w, "merged to %s: %s", result.MergedTo, result.Status)
				if result.CommitSHA != "" {
					line(w, "commit: %s", result.CommitSHA)
				}
				for _, r := range result.ConflictsResolved {
					line(w, "  resolved %s (%s): %s", r.FilePath, r.Winner, r.Reason)
				}
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "target branch (defaults to trunk)")
	return cmd
}

func newAgentCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <agent-id>",
		Short: "Remove the agent's worktree and branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.coord.Cleanup(cmd.Context(), args[0]); err != nil {
				return err
			}
			payload := map[string]string{"agent_id": args[0], "status": "removed"}
			return render(cmd, os.Stdout, payload, func(w io.Writer) {
				line(w, "worktree removed for %s", args[0])
			})
		},
	}
}
