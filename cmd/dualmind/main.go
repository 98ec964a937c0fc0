package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "dualmind",
		Short: "Adversarial plan refinement and self-correcting execution for research queries",
	}

	root.AddCommand(queryCMD(), serveCMD(), patternsCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
