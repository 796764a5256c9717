package planner

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"go.yaml.in/yaml/v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	templatesOnce sync.Once
	templates     *template.Template
	templatesErr  error
)

// TemplateData holds the variables available to note and prompt templates.
type TemplateData struct {
	Target string // canonical target without alias, e.g. "projects/Garden"
	Title  string // final segment of Target, e.g. "Garden"
}

func loadTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		templates, templatesErr = template.ParseFS(templateFS, "templates/*.tmpl")
		if templatesErr != nil {
			templatesErr = fmt.Errorf("parsing templates: %w", templatesErr)
		}
	})
	return templates, templatesErr
}

func render(name string, data TemplateData) (string, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.String(), nil
}

// HeadingContent is the minimal body of a note created without generation.
func HeadingContent(data TemplateData) (string, error) {
	return render("note.md.tmpl", data)
}

// Prompt is the fixed generation prompt for a target.
func Prompt(data TemplateData) (string, error) {
	return render("prompt.tmpl", data)
}

// DraftType is the type marker written into generated notes.
const DraftType = "draft"

type frontMatter struct {
	Created string `yaml:"created"`
	Type    string `yaml:"type"`
}

// FrontMatter renders the metadata block that prefixes generated notes.
func FrontMatter(created time.Time) (string, error) {
	out, err := yaml.Marshal(frontMatter{
		Created: created.Format(time.DateOnly),
		Type:    DraftType,
	})
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	return "---\n" + string(out) + "---\n\n", nil
}

// failureBody keeps the prompt in the note so the author can retry by hand.
func failureBody(prompt string, cause error) string {
	reason := strings.ReplaceAll(cause.Error(), "--", "- -")
	return fmt.Sprintf("<!-- generation failed: %s -->\n\n%s", reason, prompt)
}
