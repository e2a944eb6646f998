// vigil is the command line client: it starts index and review workflows on
// the task queue, waits for them and prints the outcome.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"vigil/internal/config"
	"vigil/internal/plugins"
	"vigil/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	root := &cobra.Command{
		Use:           "vigil",
		Short:         "Retrieval-augmented security review for codebases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.CodebasePath, "root", cfg.CodebasePath, "codebase root to index and review")
	root.PersistentFlags().StringVar(&cfg.TemporalAddress, "temporal", cfg.TemporalAddress, "temporal frontend address")

	root.AddCommand(newIndexCmd(&cfg))
	root.AddCommand(newReviewCmd(&cfg))
	root.AddCommand(newReviewDiffCmd(&cfg))
	root.AddCommand(newAskCmd(&cfg))
	root.AddCommand(newLanguagesCmd(&cfg))
	return root
}

func dial(cfg *config.Config) (client.Client, error) {
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return nil, fmt.Errorf("dial temporal at %s: %w", cfg.TemporalAddress, err)
	}
	return c, nil
}

func newIndexCmd(cfg *config.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the codebase into the vector store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := dial(cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			we, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
				TaskQueue: cfg.TemporalTaskQueue,
			}, workflows.IndexCodebaseWorkflow, workflows.IndexCodebaseInput{
				Root:          cfg.CodebasePath,
				MaxConcurrent: cfg.MaxWorkers,
				Force:         force,
			})
			if err != nil {
				return err
			}
			var prog workflows.IndexProgress
			if err := we.Get(cmd.Context(), &prog); err != nil {
				return err
			}
			fmt.Printf("indexed %d, skipped %d, failed %d (of %d files)\n",
				prog.Indexed, prog.Skipped, prog.Failed, prog.Total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-embed files even when unchanged")
	return cmd
}

func newReviewCmd(cfg *config.Config) *cobra.Command {
	var include, exclude []string
	var attemptFix, skipExplain bool
	var guidance string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run a security review over the whole codebase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := dial(cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			return runReview(cmd.Context(), c, cfg, workflows.ReviewRunInput{
				Mode:           "files",
				Root:           cfg.CodebasePath,
				Include:        orDefault(include, cfg.ReviewInclude),
				Exclude:        orDefault(exclude, cfg.ReviewExclude),
				MaxConcurrent:  cfg.MaxWorkers,
				SkipExplain:    skipExplain || cfg.SkipExplain,
				Validate:       cfg.ValidateFindings,
				AttemptFix:     attemptFix || cfg.AttemptFix,
				CustomGuidance: orString(guidance, cfg.CustomGuidance),
			})
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "glob patterns selecting files to review")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns excluding files from review")
	cmd.Flags().BoolVar(&attemptFix, "fix", false, "propose fixes for confirmed findings")
	cmd.Flags().BoolVar(&skipExplain, "skip-explain", false, "skip the change-explanation stage")
	cmd.Flags().StringVar(&guidance, "guidance", "", "extra review guidance, overrides defaults on conflict")
	return cmd
}

func newReviewDiffCmd(cfg *config.Config) *cobra.Command {
	var include, exclude []string
	var attemptFix, skipExplain, noReindex bool
	var guidance string
	cmd := &cobra.Command{
		Use:   "review-diff <patch-file>",
		Short: "Review the changes in a unified diff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read patch: %w", err)
			}
			c, err := dial(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if !noReindex {
				we, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
					TaskQueue: cfg.TemporalTaskQueue,
				}, workflows.UpdateIndexWorkflow, workflows.UpdateIndexInput{
					Root:          cfg.CodebasePath,
					PatchText:     string(patch),
					MaxConcurrent: cfg.MaxWorkers,
				})
				if err != nil {
					return err
				}
				var prog workflows.IndexProgress
				if err := we.Get(cmd.Context(), &prog); err != nil {
					return err
				}
				fmt.Printf("index updated: %d touched, %d failed\n", prog.Indexed, prog.Failed)
			}

			return runReview(cmd.Context(), c, cfg, workflows.ReviewRunInput{
				Mode:           "changes",
				Root:           cfg.CodebasePath,
				PatchText:      string(patch),
				Include:        orDefault(include, cfg.ReviewInclude),
				Exclude:        orDefault(exclude, cfg.ReviewExclude),
				MaxConcurrent:  cfg.MaxWorkers,
				SkipExplain:    skipExplain || cfg.SkipExplain,
				Validate:       cfg.ValidateFindings,
				AttemptFix:     attemptFix || cfg.AttemptFix,
				CustomGuidance: orString(guidance, cfg.CustomGuidance),
			})
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "glob patterns selecting files to review")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns excluding files from review")
	cmd.Flags().BoolVar(&attemptFix, "fix", false, "propose fixes for confirmed findings")
	cmd.Flags().BoolVar(&skipExplain, "skip-explain", false, "skip the change-explanation stage")
	cmd.Flags().BoolVar(&noReindex, "no-reindex", false, "skip updating the index before review")
	cmd.Flags().StringVar(&guidance, "guidance", "", "extra review guidance, overrides defaults on conflict")
	return cmd
}

func runReview(ctx context.Context, c client.Client, cfg *config.Config, input workflows.ReviewRunInput) error {
	we, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		TaskQueue: cfg.TemporalTaskQueue,
	}, workflows.ReviewRunWorkflow, input)
	if err != nil {
		return err
	}
	var out workflows.ReviewRunOutput
	if err := we.Get(ctx, &out); err != nil {
		return err
	}
	fmt.Printf("run %s: %d units, %d done, %d failed, %d findings\n",
		out.RunID, out.Total, out.Done, out.Failed, out.Findings)
	if out.OverallChanges != "" {
		fmt.Println("\n" + out.OverallChanges)
	}
	if out.ArtifactsDir != "" {
		fmt.Println("\nreports written to", out.ArtifactsDir)
	}
	return nil
}

func newAskCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the indexed codebase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			we, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
				TaskQueue: cfg.TemporalTaskQueue,
			}, workflows.AskWorkflow, workflows.AskInput{
				Root:     cfg.CodebasePath,
				Question: strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			var out workflows.AskOutput
			if err := we.Get(cmd.Context(), &out); err != nil {
				return err
			}
			fmt.Println(out.Answer)
			return nil
		},
	}
}

func newLanguagesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and extensions",
		RunE: func(_ *cobra.Command, _ []string) error {
			registry, err := plugins.Load(cfg.ProfilesPath)
			if err != nil {
				return err
			}
			for _, lang := range registry.Languages() {
				fmt.Println(lang)
			}
			fmt.Println("\nextensions:", strings.Join(registry.CodeExtensions(), " "))
			return nil
		},
	}
}

func orDefault(v, fallback []string) []string {
	if len(v) > 0 {
		return v
	}
	return fallback
}

func orString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
