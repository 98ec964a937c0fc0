package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/dualmind/internal/auth"
	"github.com/mohammad-safakhou/dualmind/internal/server"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			secret, err := auth.LoadSecret(a.cfg)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Address
			}
			srv := server.New(a.orch, a.store, a.patterns, nil, a.tel, secret)
			return srv.Run(addr)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
