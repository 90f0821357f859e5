package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"storyforge/internal/retrieval"
)

var (
	knowledgeTitle    string
	knowledgeCategory string
	knowledgeSeries   string
	knowledgeLimit    int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the retrieval knowledge store",
}

var knowledgeAddCmd = &cobra.Command{
	Use:   "add [file...]",
	Short: "Index documents into the knowledge store",
	Long: `Indexes text files so research tasks can retrieve them.

Example:
  storyforge knowledge add lore/dragons.md --category worldbuilding --series embers`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKnowledgeAdd,
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the knowledge store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKnowledgeSearch,
}

func openRetriever(cmd *cobra.Command) (*retrieval.ChromemStore, error) {
	if cfg.Generation.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set GEMINI_API_KEY or generation.api_key in %s", configPath)
	}
	embedder, err := retrieval.NewGenAIEmbedder(cmd.Context(), cfg.Generation.APIKey, "")
	if err != nil {
		return nil, err
	}
	return retrieval.NewChromemStore(cfg.Retrieval.Path, cfg.Retrieval.Collection, embedder)
}

func runKnowledgeAdd(cmd *cobra.Command, args []string) error {
	store, err := openRetriever(cmd)
	if err != nil {
		return err
	}

	docs := make([]retrieval.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		title := knowledgeTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		docs = append(docs, retrieval.Document{
			Title:    title,
			Content:  string(data),
			Category: knowledgeCategory,
			Series:   knowledgeSeries,
		})
	}
	if err := store.Index(cmd.Context(), docs); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("indexed %d document(s)", len(docs))))
	return nil
}

func runKnowledgeSearch(cmd *cobra.Command, args []string) error {
	store, err := openRetriever(cmd)
	if err != nil {
		return err
	}

	query := retrieval.Query{
		Text:   strings.Join(args, " "),
		Limit:  knowledgeLimit,
		Series: knowledgeSeries,
	}
	if knowledgeCategory != "" {
		query.Categories = []string{knowledgeCategory}
	}
	snippets, err := store.Search(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(snippets) == 0 {
		fmt.Println(mutedStyle.Render("no matches"))
		return nil
	}
	for _, s := range snippets {
		fmt.Printf("%s %s\n%s\n\n",
			headerStyle.Render(s.Title),
			mutedStyle.Render(fmt.Sprintf("[%s %.2f]", s.Category, s.Score)),
			s.Content)
	}
	return nil
}

func init() {
	knowledgeAddCmd.Flags().StringVar(&knowledgeTitle, "title", "", "document title (default: file name)")
	knowledgeAddCmd.Flags().StringVar(&knowledgeCategory, "category", "worldbuilding", "knowledge category")
	knowledgeAddCmd.Flags().StringVar(&knowledgeSeries, "series", "", "series the document belongs to")
	knowledgeSearchCmd.Flags().StringVar(&knowledgeCategory, "category", "", "restrict to a category")
	knowledgeSearchCmd.Flags().StringVar(&knowledgeSeries, "series", "", "restrict to a series")
	knowledgeSearchCmd.Flags().IntVar(&knowledgeLimit, "limit", 5, "maximum results")

	knowledgeCmd.AddCommand(knowledgeAddCmd, knowledgeSearchCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
