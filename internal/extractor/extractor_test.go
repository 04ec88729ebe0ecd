package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const careersFixture = `<html>
<head><title> Acme | Careers </title></head>
<body>
  <nav>
    <a href="/about">About us</a>
    <a href="/careers">Careers</a>
    <a href="https://acme.example/careers">Careers again</a>
    <a href="#top">Top</a>
    <a href="javascript:void(0)">Menu</a>
    <a href="mailto:HR@Acme.Example?subject=CV">Write to HR</a>
    <a href="tel:+7 (495) 123-45-67">Call</a>
  </nav>
  <p>Send your CV to jobs@acme.example or jobs@ACME.example.</p>
  <p>Phone: +7 (495) 123-45-67</p>
  <img src="logo@2x.png" alt="logo@2x.png">
  <script>var leaked = "tracker@analytics.example";</script>
  <form action="/apply" method="post">
    <input name="full_name" placeholder="Your name">
    <input type="email" name="email">
    <textarea name="letter"></textarea>
    <select name="position"><option>Backend</option></select>
    <input type="submit" value="Send">
  </form>
  <form><input name="q"></form>
</body>
</html>`

func TestExtractContacts(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		emails []string
		phones []string
	}{
		{
			name:   "email domain is case-insensitive",
			text:   "jobs@Acme.Example and jobs@acme.example",
			emails: []string{"jobs@acme.example"},
		},
		{
			name:   "phone with separators",
			text:   "call +7 (495) 123-45-67 today",
			phones: []string{"+7 (495) 123-45-67"},
		},
		{
			name:   "too few digits",
			text:   "room 123-45",
			phones: nil,
		},
		{
			name:   "asset names are not emails",
			text:   "logo@2x.png hero@3x.webp",
			emails: nil,
		},
		{
			name:   "empty text",
			text:   "",
			emails: nil,
			phones: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractContacts(tt.text)
			assert.ElementsMatch(t, tt.emails, got.Emails)
			assert.ElementsMatch(t, tt.phones, got.Phones)
		})
	}
}

func TestExtractContacts_IdempotentAndOrderIndependent(t *testing.T) {
	a := "b@x.example a@x.example +1 555 123 4567 b@x.example"
	b := "+1 555 123 4567 a@x.example b@x.example"

	first := ExtractContacts(a)
	second := ExtractContacts(a)
	reordered := ExtractContacts(b)

	assert.Equal(t, first, second)
	assert.Equal(t, first, reordered)
	assert.Equal(t, []string{"a@x.example", "b@x.example"}, first.Emails)
}

func TestParse(t *testing.T) {
	page, err := Parse(careersFixture, "https://acme.example/")
	require.NoError(t, err)

	assert.Equal(t, "Acme | Careers", page.Title)
	assert.NotContains(t, page.Text, "tracker@analytics.example")
	assert.Contains(t, page.Text, "Send your CV")

	hrefs := make([]string, 0, len(page.Links))
	for _, l := range page.Links {
		hrefs = append(hrefs, l.Href)
	}
	assert.Equal(t, []string{"https://acme.example/about", "https://acme.example/careers"}, hrefs)
	assert.Equal(t, "Careers", page.Links[1].Text)

	assert.Equal(t, []string{"HR@acme.example", "jobs@acme.example"}, page.Emails)
	assert.Equal(t, []string{"+7 (495) 123-45-67"}, page.Phones)

	require.Len(t, page.Forms, 2)
	apply := page.Forms[0]
	assert.Equal(t, "https://acme.example/apply", apply.Action)
	assert.Equal(t, "POST", apply.Method)
	require.Len(t, apply.Fields, 5)
	assert.Equal(t, "full_name", apply.Fields[0].Name)
	assert.Equal(t, "text", apply.Fields[0].Type)
	assert.Equal(t, "Your name", apply.Fields[0].Placeholder)
	assert.Equal(t, "email", apply.Fields[1].Type)
	assert.Equal(t, "textarea", apply.Fields[2].Type)
	assert.Equal(t, "select", apply.Fields[3].Type)

	search := page.Forms[1]
	assert.Equal(t, "GET", search.Method)
	assert.Equal(t, "https://acme.example/", search.Action)
}

func TestParse_BaseHref(t *testing.T) {
	html := `<html><head><base href="https://cdn.acme.example/site/"></head>
<body><a href="jobs">Jobs</a></body></html>`

	page, err := Parse(html, "https://acme.example/")
	require.NoError(t, err)
	require.Len(t, page.Links, 1)
	assert.Equal(t, "https://cdn.acme.example/site/jobs", page.Links[0].Href)
}

func TestParse_InvalidURL(t *testing.T) {
	_, err := Parse("<html></html>", "://bad")
	assert.Error(t, err)
}
