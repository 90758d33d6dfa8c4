// Package assets holds the booth's static catalog (timers, filters, stickers,
// templates, swatches) and loads the images it references.
package assets

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"photobooth/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Brand names the strip wordmark and the export filename prefix.
type Brand struct {
	Prefix   string `json:"prefix" yaml:"prefix"`
	Wordmark string `json:"wordmark" yaml:"wordmark"`
}

// FilterOption is a filter preset as shown to the user.
type FilterOption struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Catalog is the compile-time configuration of the booth.
type Catalog struct {
	Brand        Brand            `json:"brand" yaml:"brand"`
	Timers       []int            `json:"timers" yaml:"timers"`
	DefaultTimer int              `json:"defaultTimer" yaml:"defaultTimer"`
	Filters      []FilterOption   `json:"filters" yaml:"filters"`
	Stickers     []string         `json:"stickers" yaml:"stickers"`
	Templates    []model.Template `json:"templates" yaml:"templates"`
	Swatches     []string         `json:"swatches" yaml:"swatches"`
}

var (
	loadOnce sync.Once
	catalog  *Catalog
	loadErr  error
)

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which can only happen at build time.
func Default() *Catalog {
	loadOnce.Do(func() {
		catalog, loadErr = Parse(catalogYAML)
	})
	if loadErr != nil {
		panic(loadErr)
	}
	return catalog
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.Brand.Prefix == "" {
		return fmt.Errorf("catalog: brand prefix is empty")
	}
	if !slices.Contains(c.Timers, c.DefaultTimer) {
		return fmt.Errorf("catalog: default timer %d not among %v", c.DefaultTimer, c.Timers)
	}
	for _, t := range c.Templates {
		if len(t.FixedStickers) != 2 {
			return fmt.Errorf("catalog: template %q has %d fixed stickers, want 2", t.Name, len(t.FixedStickers))
		}
	}
	for _, s := range c.Swatches {
		if _, err := ParseHexColor(s); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}
	return nil
}

// Template finds a template by name.
func (c *Catalog) Template(name string) (model.Template, bool) {
	for _, t := range c.Templates {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return model.Template{}, false
}

// HasSticker reports whether ref is one of the user sticker images.
func (c *Catalog) HasSticker(ref string) bool {
	return slices.Contains(c.Stickers, ref)
}

// HasTimer reports whether seconds is an offered countdown length.
func (c *Catalog) HasTimer(seconds int) bool {
	return slices.Contains(c.Timers, seconds)
}

// HasFilter reports whether id names a filter preset.
func (c *Catalog) HasFilter(id string) bool {
	for _, f := range c.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}
