package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func queryCMD() *cobra.Command {
	var cfgPath string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run one query through plan refinement and execution",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			if a.tel != nil && a.cfg.Telemetry.MetricsPort > 0 {
				srv := a.tel.ServeMetrics(a.cfg.Telemetry.MetricsPort)
				defer srv.Close()
			}

			out, err := a.orch.Process(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Println(out.Summary())
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full run record as JSON")
	return cmd
}
