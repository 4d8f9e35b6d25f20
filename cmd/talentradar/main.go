package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath  string
	envFile     string
	metricsAddr string
	verbose     bool
	maxRounds   int
	noRestart   bool
	query       queryFlags
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "talentradar",
		Short: "TalentRadar - Research Talent Discovery",
		Long: `TalentRadar finds promising researchers by searching recent papers,
resolving their authors in the citation graph and ranking the resulting
candidate profiles against a query.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file (built-in defaults when absent)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Start a new candidate search",
		Long: `Start a new candidate search:
1. Plan search terms from keywords, venues and years
2. Search and score papers round by round
3. Resolve paper authors and score their profiles
4. Pause after --max-rounds rounds, or finish when the terms run out`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}
	query.register(searchCmd)
	searchCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Rounds before pausing (default scheduler.max_rounds_per_run, 0 runs to completion)")

	resumeCmd := &cobra.Command{
		Use:   "resume <task-id>",
		Short: "Resume a paused task",
		Long: `Resume a paused task from its checkpoint. A task whose checkpoint is
missing, expired or corrupt is started again as a new task from the [query]
config and the query flags, unless --no-restart is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runResume,
	}
	query.register(resumeCmd)
	resumeCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Rounds before pausing (default scheduler.max_rounds_per_run, 0 runs to completion)")
	resumeCmd.Flags().BoolVar(&noRestart, "no-restart", false, "Fail instead of starting a new task when the checkpoint is missing or expired")

	finishCmd := &cobra.Command{
		Use:   "finish <task-id>",
		Short: "Finalize a paused task with the candidates found so far",
		Args:  cobra.ExactArgs(1),
		RunE:  runFinish,
	}

	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage task checkpoints",
		Long:  "Manage saved task checkpoints for resuming paused searches",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved tasks",
		Args:  cobra.NoArgs,
		RunE:  listTasks,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <task-id>",
		Short: "Inspect a saved task",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectTask,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a saved task",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteTask,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired checkpoints once",
		Args:  cobra.NoArgs,
		RunE:  cleanupTasks,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired checkpoints on a schedule until interrupted",
		Long:  "Run the checkpoint sweeper on store.sweep_schedule until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE:  sweepTasks,
	}

	taskCmd.AddCommand(listCmd)
	taskCmd.AddCommand(inspectCmd)
	taskCmd.AddCommand(deleteCmd)
	taskCmd.AddCommand(cleanupCmd)
	taskCmd.AddCommand(sweepCmd)

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(taskCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
