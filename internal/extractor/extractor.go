// Package extractor turns rendered page HTML into the contact signals the
// classifier works with. Nothing here touches the network.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go-hrskip-automation/internal/models"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"
)

var (
	emailRegex = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?\(?\d[\d \t\-()]{6,}\d`)
	spaceRegex = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// image names like logo@2x.png look like addresses
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif"}

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// Signals are the deduplicated contact strings found in a text.
type Signals struct {
	Emails []string
	Phones []string
}

// ExtractContacts finds email-like and phone-like strings. Output is sorted,
// so the same text always yields the same slices.
func ExtractContacts(text string) Signals {
	emails := mapset.NewThreadUnsafeSet[string]()
	for _, m := range emailRegex.FindAllString(text, -1) {
		if e, ok := normalizeEmail(m); ok {
			emails.Add(e)
		}
	}

	phones := mapset.NewThreadUnsafeSet[string]()
	for _, m := range phoneRegex.FindAllString(text, -1) {
		if p, ok := normalizePhone(m); ok {
			phones.Add(p)
		}
	}

	return Signals{Emails: sorted(emails), Phones: sorted(phones)}
}

func normalizeEmail(raw string) (string, bool) {
	at := strings.LastIndex(raw, "@")
	if at <= 0 || at == len(raw)-1 {
		return "", false
	}
	local := strings.Trim(raw[:at], ".")
	domain := strings.ToLower(strings.Trim(raw[at+1:], "."))
	if local == "" || !strings.Contains(domain, ".") {
		return "", false
	}
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return "", false
		}
	}
	return local + "@" + domain, true
}

func normalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return "", false
	}
	return spaceRegex.ReplaceAllString(raw, " "), true
}

func sorted(set mapset.Set[string]) []string {
	out := set.ToSlice()
	sort.Strings(out)
	return out
}

// Parse builds a PageContent from rendered HTML. pageURL is the final URL of
// the page and is used to resolve relative links and form actions.
func Parse(html, pageURL string) (*models.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	page := &models.PageContent{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Links: ExtractLinks(doc, base),
		Forms: ExtractForms(doc, base),
	}
	page.Text = bodyText(doc)

	signals := ExtractContacts(page.Text)
	mailto, tel := contactHrefs(doc)
	page.Emails = merge(signals.Emails, mailto, normalizeEmail)
	page.Phones = merge(signals.Phones, tel, normalizePhone)

	return page, nil
}

// ExtractForms lists every form with its action resolved against base.
func ExtractForms(doc *goquery.Document, base *url.URL) []models.Form {
	var forms []models.Form
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		action := strings.TrimSpace(s.AttrOr("action", ""))
		form := models.Form{
			Action: resolve(base, action),
			Method: strings.ToUpper(strings.TrimSpace(s.AttrOr("method", "GET"))),
		}
		if form.Method == "" {
			form.Method = "GET"
		}
		if form.Action == "" && base != nil {
			form.Action = base.String()
		}

		s.Find("input, select, textarea").Each(func(_ int, f *goquery.Selection) {
			name := f.AttrOr("name", f.AttrOr("id", ""))
			fieldType := goquery.NodeName(f)
			if fieldType == "input" {
				fieldType = strings.ToLower(f.AttrOr("type", "text"))
			}
			form.Fields = append(form.Fields, models.FormField{
				Name:        name,
				Type:        fieldType,
				Placeholder: strings.TrimSpace(f.AttrOr("placeholder", "")),
			})
		})
		forms = append(forms, form)
	})
	return forms
}

// ExtractLinks returns absolute http(s) links in document order, one per href.
func ExtractLinks(doc *goquery.Document, base *url.URL) []models.Link {
	seen := mapset.NewThreadUnsafeSet[string]()
	var links []models.Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		abs := resolve(base, href)
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			return
		}
		if !seen.Add(abs) {
			return
		}
		text := collapse(s.Text())
		if text == "" {
			text = strings.TrimSpace(s.AttrOr("title", s.AttrOr("aria-label", "")))
		}
		links = append(links, models.Link{Text: text, Href: abs})
	})
	return links
}

func skipHref(href string) bool {
	lower := strings.ToLower(href)
	return href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:")
}

func contactHrefs(doc *goquery.Document) (emails, phones []string) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			addr := href[len("mailto:"):]
			if i := strings.Index(addr, "?"); i >= 0 {
				addr = addr[:i]
			}
			if decoded, err := url.PathUnescape(addr); err == nil {
				addr = decoded
			}
			emails = append(emails, strings.Split(addr, ",")...)
		case strings.HasPrefix(lower, "tel:"):
			phones = append(phones, href[len("tel:"):])
		}
	})
	return emails, phones
}

func merge(found, extra []string, normalize func(string) (string, bool)) []string {
	set := mapset.NewThreadUnsafeSet[string](found...)
	for _, raw := range extra {
		if v, ok := normalize(strings.TrimSpace(raw)); ok {
			set.Add(v)
		}
	}
	return sorted(set)
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find("script, style, noscript, template").Remove()

	text := spaceRegex.ReplaceAllString(body.Text(), " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return strings.TrimSpace(text)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
