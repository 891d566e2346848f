// Package prompts holds the stage prompt templates. Each template file
// defines a "<stage>.system" and a "<stage>.user" template rendered with
// Data.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Data is passed to every template.
type Data struct {
	Brief string
	Deps  map[string]any
	Extra map[string]any
}

// Library is a parsed set of stage prompts.
type Library struct {
	tmpl *template.Template
}

// Load parses the embedded templates.
func Load() (*Library, error) {
	return LoadFS(templateFS, "templates/*.tmpl")
}

// Templates returns the embedded template files, rooted at their directory.
func Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadFS parses templates matching pattern in fsys.
func LoadFS(fsys fs.FS, pattern string) (*Library, error) {
	tmpl, err := template.New("prompts").
		Funcs(template.FuncMap{"json": toJSON}).
		Option("missingkey=zero").
		ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("prompts: parse templates: %w", err)
	}
	return &Library{tmpl: tmpl}, nil
}

// Stages returns the sorted names of stages with both a system and a user
// template.
func (l *Library) Stages() []string {
	var out []string
	for _, t := range l.tmpl.Templates() {
		name, ok := strings.CutSuffix(t.Name(), ".system")
		if ok && l.tmpl.Lookup(name+".user") != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether stage has both templates.
func (l *Library) Has(stage string) bool {
	return l.tmpl.Lookup(stage+".system") != nil && l.tmpl.Lookup(stage+".user") != nil
}

// Render executes the system and user templates of stage.
func (l *Library) Render(stage string, data Data) (system, user string, err error) {
	if !l.Has(stage) {
		return "", "", fmt.Errorf("prompts: no templates for stage %q", stage)
	}
	if system, err = l.execute(stage+".system", data); err != nil {
		return "", "", err
	}
	if user, err = l.execute(stage+".user", data); err != nil {
		return "", "", err
	}
	return system, user, nil
}

func (l *Library) execute(name string, data Data) (string, error) {
	var buf bytes.Buffer
	if err := l.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
