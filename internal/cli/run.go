// Package cli wires the command-line entrypoints: generating an OpenAPI
// document from resource metadata, validating a generated document, and
// serving the mounted controller.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/restweave-dev/restweave/pkg/config"
	"github.com/restweave-dev/restweave/pkg/controller"
	"github.com/restweave-dev/restweave/pkg/openapi"
	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/spec"
)

// FallbackParams cover configless invocations of generate.
type FallbackParams struct {
	Metadata string
	Output   string
	Title    string
	Version  string
	Format   string
}

// RunGenerateParams are the inputs of the generate command.
type RunGenerateParams struct {
	ConfigPath string
	Fallback   FallbackParams
}

// RunGenerate loads the resource metadata, builds the OpenAPI document,
// validates it, and writes it to the configured output (stdout when none).
func RunGenerate(p RunGenerateParams) error {
	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}
	doc, err := buildDocument(cfg)
	if err != nil {
		return err
	}
	data, err := spec.Encode(doc, cfg.Format)
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(cfg.Output, data, 0o644)
}

// RunValidate validates an already generated OpenAPI document file or URL.
func RunValidate(input string) error {
	return openapi.ValidateDocument(input)
}

// RunServe mounts the controller for the configured registry and serves
// it until interrupted. Without a host framework runner every action
// answers 501, but the document, docs UI, and full routing surface are
// live.
func RunServe(configPath string) error {
	if configPath == "" {
		return errors.New("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	reg, err := resource.LoadRegistry(cfg.Metadata)
	if err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctrl, err := controller.New(reg, cfg, controller.Unimplemented{}, logger)
	if err != nil {
		return err
	}
	serverCfg, err := controller.ServerConfigFromEnv()
	if err != nil {
		return err
	}
	return controller.NewServer(ctrl, serverCfg, logger).Run(context.Background())
}

func loadConfig(p RunGenerateParams) (*config.Config, error) {
	if p.ConfigPath != "" {
		return config.Load(p.ConfigPath)
	}
	f := p.Fallback
	if f.Metadata == "" || f.Title == "" {
		return nil, errors.New("either --config or both --metadata and --title must be provided")
	}
	cfg := &config.Config{
		Metadata: absPath(f.Metadata),
		Output:   f.Output,
		Format:   f.Format,
		Info:     config.Info{Title: f.Title, Version: f.Version},
	}
	if cfg.Output != "" {
		cfg.Output = absPath(cfg.Output)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDocument(cfg *config.Config) (*openapi3.T, error) {
	reg, err := resource.LoadRegistry(cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	b, err := spec.NewBuilder(reg, cfg)
	if err != nil {
		return nil, err
	}
	doc, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(context.Background(), doc); err != nil {
		return nil, fmt.Errorf("generated document failed validation: %w", err)
	}
	return doc, nil
}

// utility
func absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	abs, _ := filepath.Abs(p)
	return abs
}
