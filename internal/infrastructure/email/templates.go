package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/orris-inc/paywall/internal/shared/services/markdown"
)

//go:embed templates.yaml
var templatesYAML []byte

// templateDefinition is one entry of the embedded template file. Bodies are
// written in markdown and rendered to sanitized HTML at send time.
type templateDefinition struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// TemplateRegistry resolves template IDs to renderable email templates.
type TemplateRegistry struct {
	templates map[string]templateDefinition
	markdown  markdown.MarkdownService
}

// NewTemplateRegistry parses the embedded template file.
func NewTemplateRegistry() (*TemplateRegistry, error) {
	templates := make(map[string]templateDefinition)
	if err := yaml.Unmarshal(templatesYAML, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &TemplateRegistry{
		templates: templates,
		markdown:  markdown.NewMarkdownService(),
	}, nil
}

// RenderedEmail is a fully rendered message ready for delivery.
type RenderedEmail struct {
	Subject   string
	HTMLBody  string
	PlainBody string
}

// Render substitutes variables into the template and renders the markdown
// body to sanitized HTML. The raw substituted markdown doubles as the plain
// text alternative.
func (r *TemplateRegistry) Render(templateID string, variables map[string]string) (*RenderedEmail, error) {
	def, ok := r.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("unknown email template: %s", templateID)
	}

	subject, err := substitute(templateID+".subject", def.Subject, variables)
	if err != nil {
		return nil, err
	}
	body, err := substitute(templateID+".body", def.Body, variables)
	if err != nil {
		return nil, err
	}

	htmlBody, err := r.markdown.ToHTMLSanitized(body)
	if err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}

	return &RenderedEmail{
		Subject:   subject,
		HTMLBody:  htmlBody,
		PlainBody: body,
	}, nil
}

func substitute(name, text string, variables map[string]string) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template %s: %w", name, err)
	}

	vars := variables
	if vars == nil {
		vars = map[string]string{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
