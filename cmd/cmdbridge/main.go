package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seelebot/cmdbridge/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:   "cmdbridge",
		Short: "LLM command-execution bridge for chatbot hosts",
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bridge tool gateway",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	})

	root.AddCommand(newTokenCommand())

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetInfo())
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
