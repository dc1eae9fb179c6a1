package parserator

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
)

// InstructionTemplates stores named Twig templates that render into the
// free-form instruction text sent with a parse request. Templates receive the
// preset name and the schema field list, plus any variables registered with
// WithTemplateVar.
type InstructionTemplates struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]any
}

// TemplateOption configures an InstructionTemplates store.
type TemplateOption func(*InstructionTemplates) error

// WithTemplateFS loads every *.twig file found under dir in the supplied FS.
func WithTemplateFS(fsys fs.FS, dir string) TemplateOption {
	return func(t *InstructionTemplates) error {
		return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".twig") {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			name := strings.TrimSuffix(filepath.Base(path), ".twig")
			t.templates[name] = string(content)
			return nil
		})
	}
}

// WithTemplates injects an in-memory template map.
func WithTemplates(m map[string]string) TemplateOption {
	return func(t *InstructionTemplates) error {
		for k, v := range m {
			t.templates[k] = v
		}
		return nil
	}
}

// WithTemplateVar adds a variable available to every template.
func WithTemplateVar(key string, value any) TemplateOption {
	return func(t *InstructionTemplates) error {
		t.vars[key] = value
		return nil
	}
}

// NewInstructionTemplates builds a template store from any combination of
// options.
func NewInstructionTemplates(opts ...TemplateOption) (*InstructionTemplates, error) {
	t := &InstructionTemplates{
		env:       stick.New(nil),
		templates: make(map[string]string),
		vars:      make(map[string]any),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddTemplate updates or inserts one template.
func (t *InstructionTemplates) AddTemplate(name, tpl string) { t.templates[name] = tpl }

// Render renders the named template with the given context variables.
func (t *InstructionTemplates) Render(name string, ctx map[string]any) (string, error) {
	tpl, ok := t.templates[name]
	if !ok {
		return "", fmt.Errorf("instruction template %q not found", name)
	}
	return t.RenderString(tpl, ctx)
}

// RenderString renders an inline template with the given context variables.
func (t *InstructionTemplates) RenderString(tpl string, ctx map[string]any) (string, error) {
	templateCtx := make(map[string]stick.Value, len(t.vars)+len(ctx))
	for k, v := range t.vars {
		templateCtx[k] = v
	}
	for k, v := range ctx {
		templateCtx[k] = v
	}

	var out strings.Builder
	if err := t.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", fmt.Errorf("execute instruction template: %w", err)
	}
	return out.String(), nil
}

// BuiltinInstructionTemplates returns the template store backing the bundled
// presets.
func BuiltinInstructionTemplates() *InstructionTemplates {
	t, err := NewInstructionTemplates(WithTemplates(builtinTemplates))
	if err != nil {
		// The builtin map is static; a failure here is a programming error.
		panic(err)
	}
	return t
}

var builtinTemplates = map[string]string{
	"preset": "Apply the {{ preset }} preset. Extract exactly these fields: {{ fields }}.",
}
