package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/memory"
)

var (
	feedbackOutcome string
	feedbackComment string
	feedbackDetails []string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [task-type]",
	Short: "Record feedback on generated output",
	Long: `Records whether output of a task type worked for you. Details are
key=value pairs the engine can learn preferences from.

Examples:
  storyforge feedback write-chapter --outcome negative --comment "too long"
  storyforge feedback write-scene --outcome positive --detail tone=dry`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats [task-type]",
	Short: "Show feedback counts for a task type",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackStats,
}

func runFeedback(cmd *cobra.Command, args []string) error {
	outcome := memory.FeedbackOutcome(feedbackOutcome)
	switch outcome {
	case memory.OutcomePositive, memory.OutcomeNegative, memory.OutcomeNeutral:
	default:
		return fmt.Errorf("outcome must be positive, negative, or neutral")
	}

	details := map[string]string{}
	for _, d := range feedbackDetails {
		k, v, ok := strings.Cut(d, "=")
		if !ok {
			return fmt.Errorf("detail %q is not key=value", d)
		}
		details[k] = v
	}

	mem, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	if err := mem.RecordFeedback(args[0], feedbackComment, outcome, details); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("feedback recorded"))
	return nil
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	mem, err := openMemory()
	if err != nil {
		return err
	}
	defer mem.Close()

	stats, err := mem.FeedbackStats(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s %s %s\n",
		headerStyle.Render(args[0]),
		successStyle.Render(fmt.Sprintf("+%d", stats.Positive)),
		errorStyle.Render(fmt.Sprintf("-%d", stats.Negative)),
		mutedStyle.Render(fmt.Sprintf("=%d", stats.Neutral)))
	return nil
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackOutcome, "outcome", "neutral", "positive, negative, or neutral")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "free-form comment")
	feedbackCmd.Flags().StringArrayVar(&feedbackDetails, "detail", nil, "key=value detail (repeatable)")

	feedbackCmd.AddCommand(feedbackStatsCmd)
	rootCmd.AddCommand(feedbackCmd)
}
