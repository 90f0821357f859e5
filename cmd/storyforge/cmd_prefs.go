package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var prefsCategory string

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage writing preferences",
	Long: `Preferences bias generation prompts. The style category is read by
every writing task.

Examples:
  storyforge prefs set tone "dry wit"
  storyforge prefs set tense past
  storyforge prefs list`,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := openMemory()
		if err != nil {
			return err
		}
		defer mem.Close()
		if err := mem.SetPreference(prefsCategory, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("%s.%s = %s", prefsCategory, args[0], args[1])))
		return nil
	},
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List preferences in a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := openMemory()
		if err != nil {
			return err
		}
		defer mem.Close()
		prefs, err := mem.Preferences(prefsCategory)
		if err != nil {
			return err
		}
		if len(prefs) == 0 {
			fmt.Println(mutedStyle.Render("no preferences set"))
			return nil
		}
		for k, v := range prefs {
			fmt.Printf("%s %s\n", headerStyle.Render(k+":"), v)
		}
		return nil
	},
}

func init() {
	prefsCmd.PersistentFlags().StringVar(&prefsCategory, "category", "style", "preference category")
	prefsCmd.AddCommand(prefsSetCmd, prefsListCmd)
	rootCmd.AddCommand(prefsCmd)
}
