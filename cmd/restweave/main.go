package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	cli "github.com/restweave-dev/restweave/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:   "restweave",
		Short: "Derive OpenAPI documents and JSON:API controllers from resource metadata",
	}

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	var configPath string
	var metadata string
	var output string
	var title string
	var version string
	var format string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an OpenAPI document from resource metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunGenerate(cli.RunGenerateParams{
				ConfigPath: configPath,
				Fallback: cli.FallbackParams{
					Metadata: metadata,
					Output:   output,
					Title:    title,
					Version:  version,
					Format:   format,
				},
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to restweave.yaml config")
	// Fallback configless flags
	cmd.Flags().StringVar(&metadata, "metadata", "", "Resource metadata file (yaml)")
	cmd.Flags().StringVar(&output, "out", "", "Output file; stdout when omitted")
	cmd.Flags().StringVar(&title, "title", "", "API title")
	cmd.Flags().StringVar(&version, "api-version", "0.0.1", "API version")
	cmd.Flags().StringVar(&format, "format", "", "Output format (json or yaml)")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a generated OpenAPI document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunValidate(input)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "OpenAPI document file (yaml/json)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON:API controller for a resource registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to restweave.yaml config")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
