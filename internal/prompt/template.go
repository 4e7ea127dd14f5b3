// Package prompt holds the versioned template registry used to build
// model requests. Templates are Twig snippets rendered through stick,
// registered under an (id, version) pair and resolvable as "latest".
package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tyler-sommer/stick"

	"github.com/kalambet/underwrite/internal/provider"
)

// Latest selects the highest registered version of a template.
const Latest = "latest"

// Template is a versioned prompt definition. Body is a Twig template;
// Required lists variables that must be supplied at render time.
type Template struct {
	ID       string
	Version  string
	Category string
	System   string
	Body     string
	Required []string
	Optional []string
	Schema   *provider.Schema
}

// Rendered is the output of rendering a template: the static system
// prompt plus the variable-substituted user prompt.
type Rendered struct {
	System string
	Prompt string
	Schema *provider.Schema
}

// MissingVariableError reports required variables absent from a render
// call. Missing is sorted for stable messages.
type MissingVariableError struct {
	Template string
	Version  string
	Missing  []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %s@%s: missing required variables: %s",
		e.Template, e.Version, strings.Join(e.Missing, ", "))
}

// NotFoundError reports a lookup for an unregistered template or version.
type NotFoundError struct {
	Template string
	Version  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %s@%s not registered", e.Template, e.Version)
}

func (t *Template) render(env *stick.Env, vars map[string]any) (*Rendered, error) {
	var missing []string
	for _, name := range t.Required {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingVariableError{Template: t.ID, Version: t.Version, Missing: missing}
	}

	templateCtx := make(map[string]stick.Value, len(vars))
	for k, v := range vars {
		templateCtx[k] = v
	}

	var out strings.Builder
	if err := env.Execute(t.Body, &out, templateCtx); err != nil {
		return nil, fmt.Errorf("rendering template %s@%s: %w", t.ID, t.Version, err)
	}

	return &Rendered{System: t.System, Prompt: out.String(), Schema: t.Schema}, nil
}

// compareVersions orders dotted numeric versions ("1.0" < "1.1" < "2.0").
// Non-numeric segments fall back to string comparison.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
