package prompt

import (
	"fmt"
	"sort"

	"github.com/tyler-sommer/stick"
)

// Registry stores templates keyed by id and version. It is populated at
// startup and read-only afterwards, so no locking is needed.
type Registry struct {
	env       *stick.Env
	templates map[string]map[string]*Template
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		env:       stick.New(nil),
		templates: make(map[string]map[string]*Template),
	}
}

// NewDefaultRegistry returns a registry preloaded with the built-in
// extraction, assessment and repair templates.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range builtinTemplates() {
		if err := r.Register(t); err != nil {
			// Built-ins are compiled in; a collision is a programming error.
			panic(err)
		}
	}
	return r
}

// Register adds a template. Registering the same (id, version) twice is
// an error so a deploy cannot silently shadow an existing prompt.
func (r *Registry) Register(t *Template) error {
	if t.ID == "" || t.Version == "" {
		return fmt.Errorf("template id and version are required")
	}
	if t.Version == Latest {
		return fmt.Errorf("template %s: %q is a reserved version", t.ID, Latest)
	}
	versions, ok := r.templates[t.ID]
	if !ok {
		versions = make(map[string]*Template)
		r.templates[t.ID] = versions
	}
	if _, exists := versions[t.Version]; exists {
		return fmt.Errorf("template %s@%s already registered", t.ID, t.Version)
	}
	versions[t.Version] = t
	return nil
}

// Get returns the template for id at the given version. Version "latest"
// (or empty) resolves to the highest registered version.
func (r *Registry) Get(id, version string) (*Template, error) {
	versions, ok := r.templates[id]
	if !ok {
		return nil, &NotFoundError{Template: id, Version: version}
	}
	if version == "" || version == Latest {
		var best string
		for v := range versions {
			if best == "" || compareVersions(v, best) > 0 {
				best = v
			}
		}
		return versions[best], nil
	}
	t, ok := versions[version]
	if !ok {
		return nil, &NotFoundError{Template: id, Version: version}
	}
	return t, nil
}

// Render resolves and renders a template in one step.
func (r *Registry) Render(id, version string, vars map[string]any) (*Rendered, error) {
	t, err := r.Get(id, version)
	if err != nil {
		return nil, err
	}
	return t.render(r.env, vars)
}

// Info describes a registered template for listings.
type Info struct {
	ID       string   `json:"id"`
	Version  string   `json:"version"`
	Category string   `json:"category"`
	Required []string `json:"required_variables"`
	Optional []string `json:"optional_variables,omitempty"`
}

// List returns metadata for every registered template, sorted by id then
// version for stable output.
func (r *Registry) List() []Info {
	var out []Info
	for id, versions := range r.templates {
		for v, t := range versions {
			out = append(out, Info{
				ID:       id,
				Version:  v,
				Category: t.Category,
				Required: t.Required,
				Optional: t.Optional,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return compareVersions(out[i].Version, out[j].Version) < 0
	})
	return out
}
