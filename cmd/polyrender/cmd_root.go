package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender"
	"github.com/spf13/cobra"
)

// engineFlags are shared by every command that compiles a template.
type engineFlags struct {
	configFile string
	strict     bool
	manifests  []string
	elements   []string
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName + " [command]",
		Short: "Render Polymer-style templates on the server",
		Long: appName + " compiles Polymer-style component templates (bindings, dom-if,\n" +
			"dom-repeat and registered elements) and renders them to markup or a node tree.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "",
		"YAML configuration file (default: built-in defaults plus POLYRENDER_* environment)")
	cmd.Flags().BoolVar(&f.strict, "strict", false,
		"fail on malformed markup, unparsable bindings and missing templates")
	cmd.Flags().StringArrayVarP(&f.manifests, "elements", "e", nil,
		"element manifest YAML file (repeatable)")
	cmd.Flags().StringArrayVar(&f.elements, "element", nil,
		"register one element as name=file (repeatable)")
}

// engine builds an engine from the configuration flags and registers every
// element named by a manifest or an --element flag. Flags are applied after
// manifests so a flag can replace a manifest entry.
func (f *engineFlags) engine() (*polyrender.Engine, error) {
	config := polyrender.GetGlobalConfig()
	if f.configFile != "" {
		loaded, err := polyrender.LoadConfigFile(f.configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if f.strict {
		config.StrictMode = true
	}

	engine := polyrender.NewWithConfig(config)

	for _, path := range f.manifests {
		manifest, err := loadManifest(path)
		if err != nil {
			return nil, err
		}
		if err := manifest.register(engine); err != nil {
			return nil, err
		}
	}

	for _, spec := range f.elements {
		name, file, ok := strings.Cut(spec, "=")
		if !ok || strings.TrimSpace(name) == "" || file == "" {
			return nil, fmt.Errorf("invalid --element %q: want name=file", spec)
		}
		source, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %s: %w", name, err)
		}
		engine.RegisterElement(name, string(source), nil)
	}

	return engine, nil
}

func readTemplate(path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(source), nil
}
