package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender"
	"gopkg.in/yaml.v3"
)

// manifest lists elements to register before compiling.
//
//	elements:
//	  - name: employee-card
//	    file: employee-card.html
//	    defaults:
//	      role: staff
//	  - name: x-badge
//	    source: <span>{{label}}</span>
type manifest struct {
	Elements []manifestElement `yaml:"elements"`

	dir string
}

type manifestElement struct {
	Name     string                  `yaml:"name"`
	Source   string                  `yaml:"source"`
	File     string                  `yaml:"file"` // relative to the manifest
	Defaults polyrender.TemplateData `yaml:"defaults"`
}

func loadManifest(path string) (*manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return &m, m.validate()
}

func (m *manifest) validate() error {
	for i, el := range m.Elements {
		switch {
		case el.Name == "":
			return fmt.Errorf("manifest element %d: name is required", i)
		case el.Source == "" && el.File == "":
			return fmt.Errorf("manifest element %s: one of source or file is required", el.Name)
		case el.Source != "" && el.File != "":
			return fmt.Errorf("manifest element %s: source and file are mutually exclusive", el.Name)
		}
	}
	return nil
}

func (m *manifest) register(engine *polyrender.Engine) error {
	var errs []error
	for _, el := range m.Elements {
		source := el.Source
		if el.File != "" {
			path := el.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(m.dir, path)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("element %s: %w", el.Name, err))
				continue
			}
			source = string(raw)
		}
		engine.RegisterElement(el.Name, source, el.Defaults)
	}
	return errors.Join(errs...)
}
