package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mtessler/coxswain/internal/workflow"
)

// AddWorkflowCommand adds the workflow command group to the root command.
func AddWorkflowCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflow integration branches and lifecycle",
	}

	cmd.AddCommand(newWorkflowBranchCmd())
	cmd.AddCommand(newWorkflowDiffCmd())
	cmd.AddCommand(newWorkflowCompleteCmd())
	cmd.AddCommand(newWorkflowApproveCmd())
	cmd.AddCommand(newWorkflowRejectCmd())
	cmd.AddCommand(newWorkflowPreviewCmd())
	cmd.AddCommand(newWorkflowDeleteCmd())

	root.AddCommand(cmd)
}

func newWorkflowBranchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch <workflow-id>",
		Short: "Create (or fetch) the workflow's integration branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			info, err := app.manager.CreateWorkflowBranch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, info, func(w io.Writer) {
				line(w, "branch: %s", info.BranchName)
				line(w, "created from: %s", info.CreatedFromSHA)
				if info.AlreadyExisted {
					line(w, "(already existed)")
				}
			})
		},
	}
}

func newWorkflowDiffCmd() *cobra.Command {
	var showPatch bool

	cmd := &cobra.Command{
		Use:   "diff <branch>",
		Short: "Show what a workflow branch changed relative to trunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			diff, err := app.manager.WorkflowDiff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, diff, func(w io.Writer) {
				line(w, "branch: %s (merge base %s)", diff.Branch, diff.MergeBaseSHA)
				line(w, "%d commit(s), %d file(s), +%d -%d",
					len(diff.Commits), len(diff.Files), diff.Stat.Insertions, diff.Stat.Deletions)
				for _, f := range diff.Files {
					line(w, "  %s %s", f.Status, f.Path)
				}
				if showPatch && diff.Patch != "" {
					line(w, "%s", diff.Patch)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&showPatch, "patch", false, "include the raw diff text")
	return cmd
}

func newWorkflowCompleteCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "complete <workflow-id>",
		Short: "Finalize a workflow, auto-merging its branch when allowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.finalizer.CompleteWorkflow(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, result, func(w io.Writer) {
				renderCompletion(w, result)
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "completion reason recorded on finalized phases")
	return cmd
}

func newWorkflowApproveCmd() *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "approve <workflow-id>",
		Short: "Approve the final merge and complete the workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.finalizer.ApproveFinalMerge(cmd.Context(), args[0], reviewer)
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, result, func(w io.Writer) {
				renderCompletion(w, result)
			})
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity recorded on the workflow")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func newWorkflowRejectCmd() *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "reject <workflow-id>",
		Short: "Reject the final merge; the branch is preserved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.finalizer.RejectFinalMerge(cmd.Context(), args[0], reviewer)
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, result, func(w io.Writer) {
				renderCompletion(w, result)
			})
		},
	}

	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer identity recorded on the workflow")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func newWorkflowPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <workflow-id>",
		Short: "Show completion readiness without mutating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			preview, err := app.finalizer.CompletionPreview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, preview, func(w io.Writer) {
				line(w, "workflow: %s (%s, final merge %s)", preview.WorkflowID, preview.Status, preview.FinalMergeStatus)
				if preview.BranchName != "" {
					line(w, "branch: %s", preview.BranchName)
				}
				line(w, "active tasks: %d, active agents: %d, dangling phases: %d",
					preview.ActiveTasks, preview.ActiveAgents, preview.DanglingPhases)
				for status, n := range preview.TasksByStatus {
					line(w, "  %s: %d", status, n)
				}
			})
		},
	}
}

func newWorkflowDeleteCmd() *cobra.Command {
	var (
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "delete <workflow-id>",
		Short: "Delete a workflow and everything that references it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), Logger())
			if err != nil {
				return err
			}
			defer app.Close()

			if dryRun {
				preview, previewErr := app.reaper.DeletionPreview(cmd.Context(), args[0])
				if previewErr != nil {
					return previewErr
				}
				return render(cmd, os.Stdout, preview, func(w io.Writer) {
					line(w, "would delete %d row(s) across %d table(s)", preview.Total, len(preview.Counts))
					if preview.Blocked {
						line(w, "blocked: workflow is active (%d active agent(s)); use --force", len(preview.ActiveAgents))
					}
				})
			}

			result, err := app.reaper.DeleteWorkflow(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			return render(cmd, os.Stdout, result, func(w io.Writer) {
				line(w, "deleted %d row(s); %d agent(s) terminated", result.Total, result.AgentsTerminated)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "terminate active agents and delete anyway")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without deleting")
	return cmd
}

func renderCompletion(w io.Writer, result *workflow.CompletionResult) {
	line(w, "workflow: %s", result.WorkflowID)
	line(w, "status: %s (final merge %s)", result.Status, result.FinalMergeStatus)
	if result.MergeCommitSHA != "" {
		line(w, "merge commit: %s", result.MergeCommitSHA)
	}
	if result.AlreadyCompleted {
		line(w, "(already completed)")
	}
	if result.PendingReview {
		line(w, "awaiting final review: approve or reject to proceed")
	}
}
