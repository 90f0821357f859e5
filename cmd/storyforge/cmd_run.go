package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/engine"
)

var (
	runSeries      string
	runContentFile string
	runJSON        bool
)

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Execute a writing goal and print the final artifact",
	Long: `Plans the goal, executes every task, and iterates critique and
improvement until the result passes review or the iteration budget is
spent.

Examples:
  storyforge run "write chapter 3 where Mara reaches the harbor"
  storyforge run "improve the pacing of this scene" --content draft.txt
  storyforge run "write a scene" --series embers --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var streamCmd = &cobra.Command{
	Use:   "stream [goal]",
	Short: "Execute a writing goal with live progress output",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStream,
}

func goalContext() (map[string]any, error) {
	gc := map[string]any{}
	if runSeries != "" {
		gc["series"] = runSeries
	}
	if runContentFile != "" {
		data, err := os.ReadFile(runContentFile)
		if err != nil {
			return nil, fmt.Errorf("read content file: %w", err)
		}
		gc["content"] = string(data)
	}
	if len(gc) == 0 {
		return nil, nil
	}
	return gc, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")
	gc, err := goalContext()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.orch.Run(cmd.Context(), goal, gc)
	if runJSON {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printResponse(resp)
	if !resp.Success {
		return fmt.Errorf("goal did not complete successfully")
	}
	return nil
}

func runStream(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")
	gc, err := goalContext()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var final engine.AgentResponse
	for event := range a.orch.RunStream(cmd.Context(), goal, gc) {
		switch event.Type {
		case engine.EventStart:
			fmt.Println(titleStyle.Render("▶ " + event.Message))
		case engine.EventPlanning:
			fmt.Println(mutedStyle.Render("  planning..."))
		case engine.EventPlanCreated:
			if tasks, ok := event.Data.([]*engine.Task); ok {
				fmt.Println(headerStyle.Render(fmt.Sprintf("  plan: %d tasks (%s)", len(tasks), event.Message)))
				for _, t := range tasks {
					fmt.Println(mutedStyle.Render("    • " + t.Title))
				}
			}
		case engine.EventTaskStart:
			fmt.Println("  ⋯ " + event.Message)
		case engine.EventTaskComplete:
			fmt.Println(successStyle.Render("  ✓ " + event.Message))
		case engine.EventReviewing:
			fmt.Println(mutedStyle.Render("  reviewing " + event.Message + "..."))
		case engine.EventCritique:
			fmt.Println(headerStyle.Render("  critique: " + event.Message))
		case engine.EventImproving:
			fmt.Println(warnStyle.Render("  improving..."))
		case engine.EventComplete:
			if resp, ok := event.Data.(engine.AgentResponse); ok {
				final = resp
			}
		}
	}

	fmt.Println()
	printResponse(final)
	if !final.Success {
		return fmt.Errorf("goal did not complete successfully")
	}
	return nil
}

func printResponse(resp engine.AgentResponse) {
	status := successStyle.Render("✓ success")
	if !resp.Success {
		status = errorStyle.Render("✗ incomplete")
	}
	fmt.Printf("%s  score %.1f  %d/%d tasks  %d iteration(s)  %dms\n",
		status, resp.QualityScore, resp.TasksCompleted,
		resp.TasksCompleted+resp.TasksFailed, resp.Iterations, resp.DurationMs)
	if len(resp.PendingInput) > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  %d task(s) wanted user input and were auto-resolved", len(resp.PendingInput))))
	}
	if resp.FinalArtifact != "" {
		fmt.Println(artifactStyle.Render(resp.FinalArtifact))
	}
}

func init() {
	for _, c := range []*cobra.Command{runCmd, streamCmd} {
		c.Flags().StringVar(&runSeries, "series", "", "scope retrieval to a series")
		c.Flags().StringVar(&runContentFile, "content", "", "file with existing text the goal operates on")
	}
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full response as JSON")
	rootCmd.AddCommand(runCmd, streamCmd)
}
