package dialogue

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

//go:embed variants/*.toml
var builtinVariants embed.FS

// ErrUnknownVariant is returned when a variant name is not in the catalog.
var ErrUnknownVariant = errors.New("unknown variant")

// variantFile is the on-disk layout: any number of [[variants]] tables.
type variantFile struct {
	Variants []*Variant `toml:"variants"`
}

// ParseVariants decodes and validates the variants in a TOML document.
func ParseVariants(data []byte) ([]*Variant, error) {
	var file variantFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode variants: %w", err)
	}
	for _, v := range file.Variants {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Variants, nil
}

// Catalog indexes variants by name.
type Catalog struct {
	variants map[string]*Variant
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{variants: make(map[string]*Variant)}
}

// LoadBuiltin returns a catalog holding the variants shipped with the binary.
func LoadBuiltin() (*Catalog, error) {
	c := NewCatalog()
	entries, err := fs.ReadDir(builtinVariants, "variants")
	if err != nil {
		return nil, fmt.Errorf("failed to list builtin variants: %w", err)
	}
	for _, entry := range entries {
		data, err := builtinVariants.ReadFile(path.Join("variants", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		variants, err := ParseVariants(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		for _, v := range variants {
			c.Add(v)
		}
	}
	return c, nil
}

// LoadFile adds the variants of a TOML file, replacing builtins of the same name.
func (c *Catalog) LoadFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read variants file: %w", err)
	}
	variants, err := ParseVariants(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	for _, v := range variants {
		c.Add(v)
	}
	return nil
}

// Add registers v, replacing any variant with the same name.
func (c *Catalog) Add(v *Variant) {
	c.variants[v.Name] = v
}

// Get looks a variant up by name.
func (c *Catalog) Get(name string) (*Variant, error) {
	v, ok := c.variants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Names returns the variant names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.variants))
	for name := range c.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the variants sorted by name.
func (c *Catalog) List() []*Variant {
	out := make([]*Variant, 0, len(c.variants))
	for _, name := range c.Names() {
		out = append(out, c.variants[name])
	}
	return slices.Clip(out)
}
