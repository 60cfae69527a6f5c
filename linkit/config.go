package linkit

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"github.com/rgonek/linkit/model"
	"github.com/rgonek/linkit/template"
)

const (
	// DefaultHref is the link target a button gets before one is picked.
	DefaultHref = "#"
	// maxPostfixPassesLimit bounds the configurable fixed-point cap.
	maxPostfixPassesLimit = 100
)

// Config holds all engine configuration options.
type Config struct {
	NormalizedTypes  []string               `json:"normalizedTypes,omitempty" yaml:"normalized_types,omitempty"`
	DefaultHref      string                 `json:"defaultHref,omitempty" yaml:"default_href,omitempty"`
	MaxPostfixPasses int                    `json:"maxPostfixPasses,omitempty" yaml:"max_postfix_passes,omitempty"`
	DisallowLinkIn   []string               `json:"disallowLinkIn,omitempty" yaml:"disallow_link_in,omitempty"`
	Templates        []template.ElementInfo `json:"templates,omitempty" yaml:"templates,omitempty"`
}

func (c Config) applyDefaults() Config {
	if len(c.NormalizedTypes) == 0 {
		c.NormalizedTypes = []string{template.TypeButton}
	}
	if c.DefaultHref == "" {
		c.DefaultHref = DefaultHref
	}
	if c.MaxPostfixPasses == 0 {
		c.MaxPostfixPasses = model.DefaultMaxPostfixPasses
	}
	if c.Templates == nil {
		c.Templates = []template.ElementInfo{{Name: template.TypeButton, Type: template.TypeButton}}
	}
	return c
}

// WithDefaults returns a copy of c with every unset option defaulted.
func (c Config) WithDefaults() Config {
	return c.applyDefaults().clone()
}

// clone returns a deep copy of Config for slice and map backed fields.
func (c Config) clone() Config {
	cloned := c
	cloned.NormalizedTypes = slices.Clone(c.NormalizedTypes)
	cloned.DisallowLinkIn = slices.Clone(c.DisallowLinkIn)
	if c.Templates != nil {
		cloned.Templates = make([]template.ElementInfo, 0, len(c.Templates))
		for _, info := range c.Templates {
			info.Config = cloneAnyMap(info.Config)
			cloned.Templates = append(cloned.Templates, info)
		}
	}
	return cloned
}

// Validate checks that config values are valid. All problems are reported.
func (c Config) Validate() error {
	var err error
	for _, t := range c.NormalizedTypes {
		if strings.TrimSpace(t) == "" {
			err = multierr.Append(err, fmt.Errorf("normalizedTypes contains an empty type"))
		}
	}
	if strings.TrimSpace(c.DefaultHref) == "" {
		err = multierr.Append(err, fmt.Errorf("defaultHref must be non-empty"))
	}
	if c.MaxPostfixPasses < 1 || c.MaxPostfixPasses > maxPostfixPassesLimit {
		err = multierr.Append(err, fmt.Errorf("maxPostfixPasses must be between 1 and %d, got %d", maxPostfixPassesLimit, c.MaxPostfixPasses))
	}
	for _, elementType := range c.DisallowLinkIn {
		if strings.TrimSpace(elementType) == "" {
			err = multierr.Append(err, fmt.Errorf("disallowLinkIn contains an empty element type"))
		}
	}
	seen := make(map[string]struct{}, len(c.Templates))
	for _, info := range c.Templates {
		if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Type) == "" {
			err = multierr.Append(err, fmt.Errorf("template %q: name and type must be non-empty", info.Name))
			continue
		}
		if _, dup := seen[info.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("template %q defined twice", info.Name))
		}
		seen[info.Name] = struct{}{}
	}
	return err
}

// Registry builds the template registry described by the config.
func (c Config) Registry() (*template.Registry, error) {
	registry := template.NewRegistry()
	var err error
	for _, info := range c.Templates {
		err = multierr.Append(err, registry.Register(info))
	}
	return registry, err
}

// Normalizes reports whether containers of the template type are normalized.
func (c Config) Normalizes(templateType string) bool {
	return slices.Contains(c.NormalizedTypes, templateType)
}

func cloneAnyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
