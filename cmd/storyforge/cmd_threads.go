package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyforge/internal/memory"
)

var (
	threadsMinImportance string
	threadsThreshold     int
	threadsPosition      int
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect and manage tracked plot threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open plot threads",
	RunE:  runThreadsList,
}

var threadsForgottenCmd = &cobra.Command{
	Use:   "forgotten",
	Short: "List open threads untouched for too long",
	Long: `Reports open threads introduced at least --threshold positions
before --position (the current chapter or scene number).

Example:
  storyforge threads forgotten --threshold 5 --position 12`,
	RunE: runThreadsForgotten,
}

var threadsResolveCmd = &cobra.Command{
	Use:   "resolve [thread-id]",
	Short: "Mark a thread resolved at the current position",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsResolve,
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	mem, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	threads, err := mem.OpenThreads(memory.ThreadImportance(threadsMinImportance))
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println(mutedStyle.Render("no open threads"))
		return nil
	}
	printThreads(threads)
	return nil
}

func runThreadsForgotten(cmd *cobra.Command, args []string) error {
	if threadsPosition <= 0 {
		return fmt.Errorf("--position is required (current chapter or scene number)")
	}
	mem, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	threads, err := mem.ForgottenThreads(threadsThreshold, threadsPosition)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Println(successStyle.Render("no forgotten threads"))
		return nil
	}
	fmt.Println(warnStyle.Render(fmt.Sprintf("%d thread(s) may have been forgotten:", len(threads))))
	printThreads(threads)
	return nil
}

func runThreadsResolve(cmd *cobra.Command, args []string) error {
	if threadsPosition <= 0 {
		return fmt.Errorf("--position is required (where the thread resolves)")
	}
	mem, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	thread, err := mem.ResolveThread(args[0], threadsPosition)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("resolved %q at position %d", thread.Title, thread.ResolvedAt)))
	return nil
}

func printThreads(threads []memory.PlotThread) {
	for _, t := range threads {
		fmt.Printf("%s  %s %s\n",
			mutedStyle.Render(t.ID),
			headerStyle.Render(t.Title),
			mutedStyle.Render(fmt.Sprintf("[%s, introduced at %d]", t.Importance, t.IntroducedAt)))
		if t.Description != "" {
			fmt.Println("    " + t.Description)
		}
	}
}

func init() {
	threadsListCmd.Flags().StringVar(&threadsMinImportance, "min-importance", "low", "minimum importance (low, medium, high, critical)")
	threadsForgottenCmd.Flags().IntVar(&threadsThreshold, "threshold", 5, "positions since introduction before a thread counts as forgotten")
	threadsForgottenCmd.Flags().IntVar(&threadsPosition, "position", 0, "current narrative position")
	threadsResolveCmd.Flags().IntVar(&threadsPosition, "position", 0, "position at which the thread resolves")

	threadsCmd.AddCommand(threadsListCmd, threadsForgottenCmd, threadsResolveCmd)
	rootCmd.AddCommand(threadsCmd)
}
