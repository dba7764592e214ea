package scenarios

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"adventure-server/shared/models"

	"go.uber.org/zap"
)

//go:embed templates/*.yaml
var embedded embed.FS

// DefaultTemplateSlug is used when a new adventure names no template.
const DefaultTemplateSlug = "whispering-crypt"

// Catalog is the read-only set of templates known to the service.
type Catalog struct {
	templates map[string]*Template
}

// Summary is the public description of a template.
type Summary struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TotalStages int    `json:"totalStages"`
}

// LoadCatalog loads the embedded templates and then every *.yaml in extraDir
// (if set). A template in extraDir replaces an embedded one with the same slug.
func LoadCatalog(extraDir string, logger *zap.Logger) (*Catalog, error) {
	log := logger.Named("ScenarioCatalog")
	c := &Catalog{templates: make(map[string]*Template)}

	if err := c.loadFS(embedded, "templates", log); err != nil {
		return nil, err
	}
	if extraDir != "" {
		if err := c.loadFS(os.DirFS(extraDir), ".", log); err != nil {
			return nil, fmt.Errorf("failed to load templates from %s: %w", extraDir, err)
		}
	}
	if _, ok := c.templates[DefaultTemplateSlug]; !ok {
		return nil, fmt.Errorf("default template %q is missing", DefaultTemplateSlug)
	}
	log.Info("Adventure templates loaded", zap.Int("count", len(c.templates)))
	return c, nil
}

// NewCatalog builds a catalog from already parsed templates.
func NewCatalog(templates ...*Template) *Catalog {
	c := &Catalog{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		c.templates[t.Slug] = t
	}
	return c
}

func (c *Catalog) loadFS(fsys fs.FS, dir string, log *zap.Logger) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		t, err := ParseBytes(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, exists := c.templates[t.Slug]; exists {
			log.Info("Template overridden", zap.String("slug", t.Slug), zap.String("file", e.Name()))
		}
		c.templates[t.Slug] = t
	}
	return nil
}

// Get returns the template for slug; an empty slug means the default template.
func (c *Catalog) Get(slug string) (*Template, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = DefaultTemplateSlug
	}
	t, ok := c.templates[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTemplateNotFound, slug)
	}
	return t, nil
}

// List returns summaries sorted by slug.
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, Summary{Slug: t.Slug, Title: t.Title, Description: t.Description, TotalStages: t.TotalStages()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
