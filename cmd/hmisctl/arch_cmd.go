package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const exitArch = 5

type archConfig struct {
	Root              string   `yaml:"root"`
	IgnoreTests       bool     `yaml:"ignore_tests"`
	IgnorePackages    []string `yaml:"ignore_packages"`
	SharedModules     []string `yaml:"shared_modules"`
	AllowedViolations []string `yaml:"allow_violations"`
	Aliases           struct {
		Domain         []string `yaml:"domain"`
		Application    []string `yaml:"application"`
		Interfaces     []string `yaml:"interfaces"`
		Infrastructure []string `yaml:"infrastructure"`
	} `yaml:"aliases"`
}

// Module layout: modules/<name>/{domain,services,presentation,infrastructure}.
var (
	defaultDomainAliases         = []string{"domain"}
	defaultApplicationAliases    = []string{"services"}
	defaultInterfacesAliases     = []string{"presentation"}
	defaultInfrastructureAliases = []string{"infrastructure"}
)

func newArchCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "arch",
		Short: "Check that module packages respect the layer dependency rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadArchConfig(configPath)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("read arch config: %w", err))
			}
			root, err := filepath.Abs(cfg.Root)
			if err != nil {
				return withCode(exitUsage, err)
			}
			if debug {
				cleanarch.Log.SetOutput(os.Stderr)
			}

			validator := cleanarch.NewValidator(cfg.layerAliases())
			ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
			if err != nil {
				return fmt.Errorf("validate %s: %w", root, err)
			}

			violations := cfg.filter(errs)
			if !ok && len(violations) > 0 {
				for _, msg := range violations {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				return withCode(exitArch, fmt.Errorf("%d layer violation(s)", len(violations)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "layer check passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", ".gocleanarch.yml", "Path to the layer rules file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print validator debug output")
	return cmd
}

func loadArchConfig(path string) (*archConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &archConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, errors.New("root must not be empty")
	}
	return cfg, nil
}

func (c *archConfig) layerAliases() map[string]cleanarch.Layer {
	out := map[string]cleanarch.Layer{}
	applyAliases(out, c.Aliases.Domain, defaultDomainAliases, cleanarch.LayerDomain)
	applyAliases(out, c.Aliases.Application, defaultApplicationAliases, cleanarch.LayerApplication)
	applyAliases(out, c.Aliases.Interfaces, defaultInterfacesAliases, cleanarch.LayerInterfaces)
	applyAliases(out, c.Aliases.Infrastructure, defaultInfrastructureAliases, cleanarch.LayerInfrastructure)
	return out
}

func applyAliases(dst map[string]cleanarch.Layer, custom, defaults []string, layer cleanarch.Layer) {
	candidates := defaults
	if len(custom) > 0 {
		candidates = custom
	}
	for _, alias := range candidates {
		if alias != "" {
			dst[alias] = layer
		}
	}
}

func (c *archConfig) filter(errs []cleanarch.ValidationError) []string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return filterViolations(msgs, c.SharedModules, c.AllowedViolations)
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

// filterViolations drops cross-module findings that involve a shared module
// and any message containing an allowed pattern.
func filterViolations(msgs, sharedModules, allowed []string) []string {
	shared := make(map[string]struct{}, len(sharedModules))
	for _, m := range sharedModules {
		if m = strings.TrimSpace(m); m != "" {
			shared[m] = struct{}{}
		}
	}

	var out []string
	for _, msg := range msgs {
		if m := crossModulePattern.FindStringSubmatch(msg); len(m) == 3 {
			_, a := shared[m[1]]
			_, b := shared[m[2]]
			if a || b {
				continue
			}
		}
		if containsAny(msg, allowed) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func containsAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
