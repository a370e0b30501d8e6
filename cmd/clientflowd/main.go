// Package main provides the clientflowd binary entry point. Clientflowd
// runs the client workflow automation engine as a service: it consumes
// stage advancement and task completion events from NATS, drives the
// engine, and serves Prometheus metrics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "clientflowd"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Client workflow automation engine",
		Long: appName + ` drives tax-practice clients through their processing
lifecycle: stage transitions generate work items from a template catalog,
task completion cascades follow-up work, and client progress is
recomputed from the full task set.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("%s %s\n", appName, Version)
		},
	})

	cmd.AddCommand(validateCmd())

	return cmd
}

func validateCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a template catalog without starting the daemon",
		RunE: func(*cobra.Command, []string) error {
			catalog, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}
			if err := catalog.Validate(); err != nil {
				return err
			}
			fmt.Println("catalog OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path to catalog file (YAML, empty for built-in)")

	return cmd
}
