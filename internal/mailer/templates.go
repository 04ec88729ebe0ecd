package mailer

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"go-hrskip-automation/internal/models"
)

const (
	DefaultSubject = "Application for {{position}}"

	DefaultCoverLetter = `Hello,

I am interested in the {{position}} vacancy at {{company}}.

My skills and experience match the requirements of the role, and I would be glad to discuss how I can contribute to the team.

I am happy to provide any additional information you need.

Best regards,
{{name}}`

	fallbackPosition = "the position"
	fallbackCompany  = "your company"
)

// placeholderRe matches {{ key }} with any inner whitespace.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// Vars are the values substituted into user templates.
type Vars struct {
	Position string
	Name     string
	Company  string
	Email    string
	Phone    string
}

// VarsFor builds the substitution set for one application.
func VarsFor(user *models.User, app *models.Application) Vars {
	v := Vars{
		Position: strings.TrimSpace(app.Position.Title),
		Name:     user.FullName(),
		Company:  strings.TrimSpace(app.Company.Name),
		Email:    user.Email,
		Phone:    user.Phone,
	}
	if v.Position == "" {
		v.Position = fallbackPosition
	}
	if v.Company == "" {
		v.Company = fallbackCompany
	}
	return v
}

// Render replaces the recognised placeholders. Unknown ones are left as is.
func Render(tmpl string, v Vars) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.ToLower(placeholderRe.FindStringSubmatch(m)[1])
		switch key {
		case "position":
			return v.Position
		case "name":
			return v.Name
		case "company":
			return v.Company
		case "email":
			return v.Email
		case "phone":
			return v.Phone
		}
		return m
	})
}

func subjectTemplate(u *models.User) string {
	if s := strings.TrimSpace(u.Templates.EmailSubject); s != "" {
		return s
	}
	return DefaultSubject
}

func coverLetterTemplate(u *models.User) string {
	if s := strings.TrimSpace(u.Templates.CoverLetter); s != "" {
		return s
	}
	return DefaultCoverLetter
}

// textBody appends the contact footer to the rendered letter.
func textBody(letter string, v Vars) string {
	var b strings.Builder
	b.WriteString(letter)
	b.WriteString("\n\n--\n")
	b.WriteString(v.Name)
	b.WriteString("\nEmail: ")
	b.WriteString(v.Email)
	if v.Phone != "" {
		b.WriteString("\nPhone: ")
		b.WriteString(v.Phone)
	}
	return b.String()
}

var htmlTmpl = template.Must(template.New("letter").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div>{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</div>
<div style="margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee;">
<p><strong>{{.Name}}</strong></p>
<p>Email: {{.Email}}</p>
{{- if .Phone}}
<p>Phone: {{.Phone}}</p>
{{- end}}
</div>
</body>
</html>
`))

// htmlBody escapes the letter and turns newlines into <br>.
func htmlBody(letter string, v Vars) (string, error) {
	data := struct {
		Lines              []string
		Name, Email, Phone string
	}{
		Lines: strings.Split(strings.ReplaceAll(letter, "\r\n", "\n"), "\n"),
		Name:  v.Name,
		Email: v.Email,
		Phone: v.Phone,
	}
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
