package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRenderCmd() *cobra.Command {
	var (
		flags    engineFlags
		dataFile string
		tree     bool
	)

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template file with a YAML or JSON data context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			source, err := readTemplate(args[0])
			if err != nil {
				return err
			}
			data, err := loadData(dataFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if tree {
				tmpl, err := engine.Compile(source, polyrender.OutputTree)
				if err != nil {
					return err
				}
				nodes, err := tmpl.RenderTree(data)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(nodes)
			}

			tmpl, err := engine.Compile(source, polyrender.OutputString)
			if err != nil {
				return err
			}
			rendered, err := tmpl.RenderString(data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&dataFile, "data", "d", "",
		"data context file; YAML or JSON (default: empty context)")
	cmd.Flags().BoolVar(&tree, "tree", false,
		"print the rendered node tree as JSON instead of markup")
	return cmd
}

// loadData reads a render context. JSON is a subset of YAML, so one decoder
// serves both.
func loadData(path string) (polyrender.TemplateData, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	var data polyrender.TemplateData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return data, nil
}
