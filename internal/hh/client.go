// Package hh reads vacancies from the hh.ru public API.
package hh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-hrskip-automation/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultBaseURL   = "https://api.hh.ru"
	defaultUserAgent = "hrSkipBot/1.0"
	// hh.ru timestamps carry a numeric zone without a colon.
	timeLayout = "2006-01-02T15:04:05-0700"
)

var ErrVacancyNotFound = errors.New("vacancy not found")

type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// vacancyResponse mirrors the fields of GET /vacancies/{id} we use.
type vacancyResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	AlternateURL string `json:"alternate_url"`
	PublishedAt  string `json:"published_at"`
	Employer     struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		SiteURL string `json:"site_url"`
	} `json:"employer"`
	Salary *struct {
		From     *int   `json:"from"`
		To       *int   `json:"to"`
		Currency string `json:"currency"`
		Gross    bool   `json:"gross"`
	} `json:"salary"`
	Address *struct {
		City string `json:"city"`
		Raw  string `json:"raw"`
	} `json:"address"`
	Area struct {
		Name string `json:"name"`
	} `json:"area"`
}

// GetVacancy loads one vacancy by its hh.ru id.
func (c *Client) GetVacancy(ctx context.Context, id string) (models.Vacancy, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Vacancy{}, fmt.Errorf("vacancy id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/vacancies/"+url.PathEscape(id), nil)
	if err != nil {
		return models.Vacancy{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Vacancy{}, fmt.Errorf("hh.ru request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.Vacancy{}, fmt.Errorf("%w: %s", ErrVacancyNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Vacancy{}, fmt.Errorf("hh.ru returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw vacancyResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.Vacancy{}, fmt.Errorf("decode vacancy %s: %w", id, err)
	}
	return raw.toVacancy(), nil
}

func (r vacancyResponse) toVacancy() models.Vacancy {
	v := models.Vacancy{
		ID:           r.ID,
		Title:        strings.TrimSpace(r.Name),
		Description:  plainText(r.Description),
		AlternateURL: r.AlternateURL,
		Employer: models.Employer{
			Name:       strings.TrimSpace(r.Employer.Name),
			SiteURL:    strings.TrimSpace(r.Employer.SiteURL),
			PlatformID: r.Employer.ID,
		},
		Location: r.Area.Name,
	}
	if r.Salary != nil {
		v.Salary = models.Salary{From: r.Salary.From, To: r.Salary.To, Currency: r.Salary.Currency, Gross: r.Salary.Gross}
	}
	if r.Address != nil {
		if r.Address.Raw != "" {
			v.Location = r.Address.Raw
		} else if r.Address.City != "" {
			v.Location = r.Address.City
		}
	}
	if t, err := time.Parse(timeLayout, r.PublishedAt); err == nil {
		v.PublishedAt = t
	}
	return v
}

// plainText strips the HTML hh.ru uses for descriptions.
func plainText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
