package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/dualmind/internal/pattern"
)

func patternsCMD() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the memoized pattern archive",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			patterns, err := a.patterns.All(ctx)
			if err != nil {
				return err
			}
			if len(patterns) == 0 {
				fmt.Println("no patterns stored")
				return nil
			}
			for _, p := range patterns {
				fmt.Printf("%s  score=%d  type=%s  tools=%s\n  %s\n",
					p.Timestamp.Format("2006-01-02 15:04"), p.Score, p.Features.Type,
					strings.Join(p.ToolsUsed, ","), p.Query)
			}
			return nil
		},
	}

	var limit int
	search := &cobra.Command{
		Use:   "search [terms]",
		Short: "Full-text search over stored patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			idx, err := pattern.BuildIndex(ctx, a.patterns)
			if err != nil {
				return err
			}
			defer idx.Close()

			hits, err := idx.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, h := range hits {
				fmt.Printf("%.3f  score=%d  %s\n", h.Score, h.Pattern.Score, h.Pattern.Query)
			}
			return nil
		},
	}
	search.Flags().IntVar(&limit, "limit", 10, "maximum hits")

	cmd.AddCommand(list, search)
	return cmd
}
