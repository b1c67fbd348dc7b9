// Command cellvcs is a CLI front end over the core: init, stage, commit,
// status, log, reset, revert, cherry-pick, and preview, each a thin
// wrapper around the matching *vcs.Repo method.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cellvcs/internal/vcs"
	"cellvcs/internal/workbook"
)

var (
	repoRoot string
	repo     *vcs.Repo
	wb       = workbook.NewMemStore()
)

func main() {
	root := &cobra.Command{
		Use:   "cellvcs",
		Short: "Cell-granular version control for spreadsheet workbooks",
	}
	root.PersistentFlags().StringVar(&repoRoot, "root", ".", "repository root")

	root.AddCommand(
		initCmd(),
		stageCmd(),
		commitCmd(),
		statusCmd(),
		logCmd(),
		resetCmd(),
		revertCmd(),
		cherryPickCmd(),
		previewCmd(),
		diffCmd(),
	)

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func openRepo() (*vcs.Repo, error) {
	if repo != nil {
		return repo, nil
	}
	logger, _ := zap.NewProduction()
	r, err := vcs.Open(repoRoot, wb, logger)
	if err != nil {
		return nil, err
	}
	repo = r
	return repo, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new repository under --root",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewProduction()
			r, err := vcs.Init(repoRoot, wb, logger)
			if err != nil {
				return err
			}
			repo = r
			color.Green("Initialized repository at %s/.VCS", repoRoot)
			return nil
		},
	}
}

func stageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <workbook> <sheet> <row-letters> <col>",
		Short: "Stage a cell's current value",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			sheet, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("sheet must be an integer: %w", err)
			}
			col, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("col must be an integer: %w", err)
			}
			res, err := r.Stage(args[0], sheet, args[2], col)
			if err != nil {
				return err
			}
			switch res.State {
			case "unchanged":
				color.Yellow("unchanged  %s  %s", res.CellAddress, res.BlobHash[:12])
			case "added":
				color.Green("added      %s  %s", res.CellAddress, res.BlobHash[:12])
			default:
				color.Cyan("updated    %s  %s", res.CellAddress, res.BlobHash[:12])
			}
			return nil
		},
	}
}

func commitCmd() *cobra.Command {
	var message, author, email string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit staged cells",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			res, err := r.Commit(message, author, email)
			if err != nil {
				return err
			}
			color.Green("[%s] %s", res.CommitHash[:12], message)
			fmt.Printf(" %d cell(s) staged\n", res.StagedFiles)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVar(&email, "email", "", "author email")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show staged changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			res, err := r.Status()
			if err != nil {
				return err
			}
			if res.Clean {
				color.Green("nothing staged, working tree clean")
				return nil
			}
			color.Cyan("%d cell(s) staged:", res.Staged)
			for _, f := range res.StagedFiles {
				fmt.Printf("  %s\n", f)
			}
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			commits, err := r.History(limit)
			if err != nil {
				return err
			}
			for _, c := range commits {
				color.Yellow("commit %s", c.Hash)
				fmt.Printf("Author: %s\n\n    %s\n\n", c.Author, c.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum commits to show")
	return cmd
}

func resetCmd() *cobra.Command {
	var hard bool
	cmd := &cobra.Command{
		Use:   "reset <target>",
		Short: "Move the current branch to <target>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			if hard {
				res, err := r.HardReset(args[0])
				if err != nil {
					return err
				}
				color.Green("HEAD is now at %s (%d cells restored)", res.Target.String()[:12], res.AffectedCells)
				return nil
			}
			res, err := r.SoftReset(args[0])
			if err != nil {
				return err
			}
			color.Green("HEAD is now at %s (%d path(s) would change)", res.Target.String()[:12], len(res.TouchedPaths))
			return nil
		},
	}
	cmd.Flags().BoolVar(&hard, "hard", false, "rewrite the workbook store and index to match target (default is a soft reset)")
	return cmd
}

func revertCmd() *cobra.Command {
	var author, email string
	cmd := &cobra.Command{
		Use:   "revert <commit>",
		Short: "Create a new commit undoing <commit>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			res, err := r.Revert(args[0], author, email)
			if err != nil {
				return err
			}
			color.Green("[%s] revert of %s", res.CommitHash[:12], args[0][:12])
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVar(&email, "email", "", "author email")
	return cmd
}

func cherryPickCmd() *cobra.Command {
	var author, email string
	cmd := &cobra.Command{
		Use:   "cherry-pick <commit>",
		Short: "Replay <commit>'s snapshot as a new commit on HEAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			res, err := r.CherryPick(args[0], author, email)
			if err != nil {
				return err
			}
			color.Green("[%s] cherry-picked from %s", res.CommitHash[:12], args[0][:12])
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVar(&email, "email", "", "author email")
	return cmd
}

func previewCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "preview <target>",
		Short: "Show what a rollback against <target> would touch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			p, err := r.PreviewRollback(args[0], kind)
			if err != nil {
				return err
			}
			if p.Destructive {
				color.Red("%s is destructive", kind)
			} else {
				color.Cyan("%s is non-destructive", kind)
			}
			for _, path := range p.TouchedPaths {
				fmt.Printf("  %s\n", path)
				if d, ok := p.CellDiffs[path]; ok {
					fmt.Print(d)
				}
			}
			if p.Warning != "" {
				color.Yellow("warning: %s", p.Warning)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "hard_reset", "hard_reset|soft_reset|revert|cherry_pick")
	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-blob-hash> <new-blob-hash>",
		Short: "Show a line diff between two blob objects",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			result, err := r.DiffBlobs(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Print(result.Format())
			color.Cyan("%d addition(s), %d deletion(s)", result.Stats.Additions, result.Stats.Deletions)
			return nil
		},
	}
}
