package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

type PromptName string

const (
	PromptOutline      PromptName = "outline"
	PromptSectionTasks PromptName = "section_tasks"
	PromptDay          PromptName = "day"
)

// Prompt is a rendered stage prompt ready for the model.
type Prompt struct {
	Name       string
	Version    int
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// Fingerprint hashes the rendered text; equal inputs give equal prints.
func (p Prompt) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{p.Name, strconv.Itoa(p.Version), p.System, p.User} {
		h.Write([]byte(strings.TrimSpace(part)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// stage is a compiled prompt definition. Templates render against Input with
// missing keys as zero values.
type stage struct {
	version    int
	schemaName string
	schema     func() map[string]any
	system     *template.Template
	user       *template.Template
	check      func(Input) error
}

// stages is filled by init and read-only afterwards.
var stages = map[PromptName]*stage{}

func define(name PromptName, version int, schemaName string, schema func() map[string]any, system, user string, check func(Input) error) {
	parse := func(part, src string) *template.Template {
		return template.Must(template.New(string(name) + "." + part).Option("missingkey=zero").Parse(src))
	}
	if _, dup := stages[name]; dup {
		panic(fmt.Sprintf("prompt %q defined twice", name))
	}
	stages[name] = &stage{
		version:    version,
		schemaName: schemaName,
		schema:     schema,
		system:     parse("system", system),
		user:       parse("user", user),
		check:      check,
	}
}

func render(t *template.Template, in Input) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// Build renders the named prompt against in.
func Build(name PromptName, in Input) (Prompt, error) {
	st, ok := stages[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt %q", name)
	}
	if st.check != nil {
		if err := st.check(in); err != nil {
			return Prompt{}, fmt.Errorf("prompt %s: %w", name, err)
		}
	}
	p := Prompt{Name: string(name), Version: st.version, SchemaName: st.schemaName, Schema: st.schema()}
	var err error
	if p.System, err = render(st.system, in); err != nil {
		return Prompt{}, fmt.Errorf("prompt %s system: %w", name, err)
	}
	if p.User, err = render(st.user, in); err != nil {
		return Prompt{}, fmt.Errorf("prompt %s user: %w", name, err)
	}
	return p, nil
}
