package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"go-hrskip-automation/internal/models"

	"golang.org/x/time/rate"
)

const (
	StageCareersSection = "careers_section"
	StageContactMethod  = "contact_method"
)

type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindProvider    ErrorKind = "provider"
	KindSchema      ErrorKind = "schema"
)

// ClassificationError is returned next to a zero-confidence verdict. Callers
// log it and carry on.
type ClassificationError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s classification failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

type CareersVerdict struct {
	Found      bool   `json:"found"`
	URL        string `json:"url,omitempty"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

type ContactVerdict struct {
	Method     models.ContactMethod `json:"method"`
	Confidence int                  `json:"confidence"`
	Contacts   models.Contacts      `json:"contacts"`
	Reasoning  string               `json:"reasoning"`
}

type Options struct {
	Model       string
	Temperature float64
	// Timeout bounds a single provider call.
	Timeout           time.Duration
	RequestsPerMinute int
}

type Classifier struct {
	provider Provider
	opts     Options
	limiter  *rate.Limiter
}

func NewClassifier(p Provider, opts Options) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return &Classifier{provider: p, opts: opts, limiter: limiter}
}

var careersSchema = &Schema{
	Properties: []Property{
		{Name: "found", Type: TypeBoolean},
		{Name: "url", Type: TypeString, Nullable: true},
		{Name: "confidence", Type: TypeInteger},
		{Name: "reasoning", Type: TypeString},
	},
	Required: []string{"found", "url", "confidence", "reasoning"},
}

var contactSchema = &Schema{
	Properties: []Property{
		{Name: "method", Type: TypeString, Enum: []string{"email", "form", "phone", "unknown"}},
		{Name: "confidence", Type: TypeInteger},
		{Name: "contacts", Type: TypeObject, Properties: []Property{
			{Name: "email", Type: TypeString, Nullable: true},
			{Name: "phone", Type: TypeString, Nullable: true},
			{Name: "form_url", Type: TypeString, Nullable: true},
		}},
		{Name: "reasoning", Type: TypeString},
	},
	Required: []string{"method", "confidence", "contacts", "reasoning"},
}

// ClassifyCareersSection asks whether the page links to a careers section.
// On any failure the verdict is {found:false, confidence:0} and the error is
// a *ClassificationError.
func (c *Classifier) ClassifyCareersSection(ctx context.Context, page *models.PageContent, v models.Vacancy) (CareersVerdict, error) {
	prompt, err := BuildCareersPrompt(page, v)
	if err != nil {
		return CareersVerdict{}, &ClassificationError{Stage: StageCareersSection, Kind: KindSchema, Err: err}
	}

	raw, err := c.complete(ctx, StageCareersSection, prompt, 500, careersSchema)
	if err != nil {
		return CareersVerdict{}, err
	}

	verdict, err := parseCareers(raw)
	if err != nil {
		return CareersVerdict{}, &ClassificationError{Stage: StageCareersSection, Kind: KindSchema, Err: err}
	}
	return verdict, nil
}

// ClassifyContactMethod judges which contact channel a page offers. On any
// failure the verdict is {method:unknown, confidence:0}.
func (c *Classifier) ClassifyContactMethod(ctx context.Context, page *models.PageContent, v models.Vacancy) (ContactVerdict, error) {
	unknown := ContactVerdict{Method: models.ContactUnknown}

	prompt, err := BuildContactPrompt(page, v)
	if err != nil {
		return unknown, &ClassificationError{Stage: StageContactMethod, Kind: KindSchema, Err: err}
	}

	raw, err := c.complete(ctx, StageContactMethod, prompt, 800, contactSchema)
	if err != nil {
		return unknown, err
	}

	verdict, err := parseContact(raw)
	if err != nil {
		return unknown, &ClassificationError{Stage: StageContactMethod, Kind: KindSchema, Err: err}
	}
	return verdict, nil
}

func (c *Classifier) complete(ctx context.Context, stage, prompt string, maxTokens int, schema *Schema) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &ClassificationError{Stage: stage, Kind: KindRateLimited, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	raw, err := c.provider.Complete(callCtx, Request{
		Model:       c.opts.Model,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: c.opts.Temperature,
		MaxTokens:   maxTokens,
		Schema:      schema,
	})
	if err != nil {
		return "", &ClassificationError{Stage: stage, Kind: errorKind(err), Err: err}
	}
	return raw, nil
}

func errorKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests {
		return KindRateLimited
	}
	return KindProvider
}

type careersPayload struct {
	Found      *bool    `json:"found"`
	URL        *string  `json:"url"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

func parseCareers(raw string) (CareersVerdict, error) {
	var p careersPayload
	if err := decodeJSON(raw, &p); err != nil {
		return CareersVerdict{}, err
	}
	if p.Found == nil {
		return CareersVerdict{}, errors.New(`missing "found"`)
	}
	conf, err := confidence(p.Confidence)
	if err != nil {
		return CareersVerdict{}, err
	}

	v := CareersVerdict{
		Found:      *p.Found,
		Confidence: conf,
		Reasoning:  strings.TrimSpace(p.Reasoning),
	}
	if u := nonEmpty(p.URL); u != nil {
		v.URL = *u
	}
	if v.Found && v.URL == "" {
		return CareersVerdict{}, errors.New(`"found" is true but "url" is empty`)
	}
	return v, nil
}

type contactPayload struct {
	Method     *string  `json:"method"`
	Confidence *float64 `json:"confidence"`
	Contacts   struct {
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		FormURL *string `json:"form_url"`
	} `json:"contacts"`
	Reasoning string `json:"reasoning"`
}

func parseContact(raw string) (ContactVerdict, error) {
	var p contactPayload
	if err := decodeJSON(raw, &p); err != nil {
		return ContactVerdict{}, err
	}
	if p.Method == nil {
		return ContactVerdict{}, errors.New(`missing "method"`)
	}

	method := models.ContactMethod(strings.ToLower(strings.TrimSpace(*p.Method)))
	switch method {
	case models.ContactEmail, models.ContactForm, models.ContactPhone, models.ContactUnknown:
	default:
		return ContactVerdict{}, fmt.Errorf("unexpected method %q", *p.Method)
	}

	conf, err := confidence(p.Confidence)
	if err != nil {
		return ContactVerdict{}, err
	}

	return ContactVerdict{
		Method:     method,
		Confidence: conf,
		Contacts: models.Contacts{
			Email:   nonEmpty(p.Contacts.Email),
			Phone:   nonEmpty(p.Contacts.Phone),
			FormURL: nonEmpty(p.Contacts.FormURL),
		},
		Reasoning: strings.TrimSpace(p.Reasoning),
	}, nil
}

// decodeJSON accepts a bare object, a fenced one, or an object surrounded by prose.
func decodeJSON(raw string, dst any) error {
	cleaned := cleanMarkdownJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return fmt.Errorf("no JSON object in response (length %d)", len(raw))
		}
		cleaned = cleaned[start : end+1]
	}
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return fmt.Errorf("failed to decode classification: %w", err)
	}
	return nil
}

func confidence(v *float64) (int, error) {
	if v == nil {
		return 0, errors.New(`missing "confidence"`)
	}
	if *v < 0 || *v > 100 || math.IsNaN(*v) {
		return 0, fmt.Errorf("confidence %v out of range", *v)
	}
	return int(math.Round(*v)), nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
