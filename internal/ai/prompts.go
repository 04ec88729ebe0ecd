package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"go-hrskip-automation/internal/filter"
	"go-hrskip-automation/internal/models"
)

const (
	careersLinkCap = 50
	careersTextCap = 2000
	contactLinkCap = 30
	contactTextCap = 1500
	formCap        = 10
	signalCap      = 20
)

const systemPrompt = `You are a recruiting assistant that inspects company web pages.
You answer with exactly one JSON object and nothing else: no markdown, no comments.
Confidence is an integer from 0 to 100 describing how sure you are.`

// pageSummary is the bounded view of a page that goes into a prompt.
type pageSummary struct {
	URL     string
	Title   string
	Text    string
	Links   []models.Link
	Forms   []models.Form
	Emails  []string
	Phones  []string
	Vacancy models.Vacancy
}

func summarize(page *models.PageContent, v models.Vacancy, linkCap, textCap int) pageSummary {
	s := pageSummary{Vacancy: v}
	if page == nil {
		return s
	}
	s.URL = page.URL
	s.Title = page.Title
	s.Text = truncate(page.Text, textCap)
	s.Links = capSlice(filter.RankLinks(page.Links), linkCap)
	s.Forms = capSlice(page.Forms, formCap)
	s.Emails = capSlice(page.Emails, signalCap)
	s.Phones = capSlice(page.Phones, signalCap)
	return s
}

func capSlice[T any](in []T, n int) []T {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

var careersTmpl = template.Must(template.New("careers").Parse(`Find the careers / jobs / vacancies section of the company website below.

Company: {{.Vacancy.Employer.Name}}
Position: {{.Vacancy.Title}}
Page URL: {{.URL}}
Page title: {{.Title}}

Links (text -> URL):
{{range .Links}}- {{.Text}} -> {{.Href}}
{{else}}(no links)
{{end}}
Page text (truncated):
{{.Text}}

Return a JSON object with these keys:
- "found": true if the site has a page listing open positions or explaining how to apply
- "url": absolute URL of that page taken from the links above, or null
- "confidence": integer 0-100
- "reasoning": one short sentence
`))

var contactTmpl = template.Must(template.New("contact").Funcs(template.FuncMap{"join": strings.Join}).Parse(`Decide how a candidate should contact this company to apply for the position.

Company: {{.Vacancy.Employer.Name}}
Position: {{.Vacancy.Title}}
Page URL: {{.URL}}
Page title: {{.Title}}

Forms:
{{range .Forms}}- {{.Method}} {{.Action}} fields:{{range .Fields}} {{.Name}}({{.Type}}){{end}}
{{else}}(no forms)
{{end}}
Emails found: {{if .Emails}}{{join .Emails ", "}}{{else}}none{{end}}
Phones found: {{if .Phones}}{{join .Phones ", "}}{{else}}none{{end}}

Links (text -> URL):
{{range .Links}}- {{.Text}} -> {{.Href}}
{{else}}(no links)
{{end}}
Page text (truncated):
{{.Text}}

Return a JSON object with these keys:
- "method": one of "email", "form", "phone", "unknown"
- "confidence": integer 0-100
- "contacts": object with "email", "phone", "form_url", each a string or null; only use values that appear on the page
- "reasoning": one short sentence
Prefer an HR or careers email over a generic one.
`))

// BuildCareersPrompt renders the careers-section prompt over a bounded summary.
func BuildCareersPrompt(page *models.PageContent, v models.Vacancy) (string, error) {
	return render(careersTmpl, summarize(page, v, careersLinkCap, careersTextCap))
}

// BuildContactPrompt renders the contact-method prompt over a bounded summary.
func BuildContactPrompt(page *models.PageContent, v models.Vacancy) (string, error) {
	return render(contactTmpl, summarize(page, v, contactLinkCap, contactTextCap))
}

func render(t *template.Template, s pageSummary) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
