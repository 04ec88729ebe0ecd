// Package discovery finds the best way to contact an employer about a vacancy.
//
// One run walks these stages, strictly in order:
//
//	START ──► COMPANY_SITE_VISITED ──► CAREERS_FOUND ──► CONTACT_ANALYZED ──► DONE
//	  │                 │
//	  │                 └──► CAREERS_NOT_FOUND ──┐
//	  └──(no site / navigation failed)──────────►├──► GENERAL_SEARCH ──► DONE
//
// Every stage attempt, failed or not, is appended to the result log. Stage
// failures never abort the run: the worst outcome is found=false.
package discovery

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go-hrskip-automation/internal/ai"
	"go-hrskip-automation/internal/browser"
	"go-hrskip-automation/internal/models"
	"go-hrskip-automation/internal/scraper"
)

type Stage string

const (
	StageStart              Stage = "START"
	StageCompanySiteVisited Stage = "COMPANY_SITE_VISITED"
	StageCareersFound       Stage = "CAREERS_FOUND"
	StageCareersNotFound    Stage = "CAREERS_NOT_FOUND"
	StageContactAnalyzed    Stage = "CONTACT_ANALYZED"
	StageGeneralSearch      Stage = "GENERAL_SEARCH"
	StageDone               Stage = "DONE"
)

// Log action tags.
const (
	ActionVisitingWebsite          = "visiting_company_website"
	ActionWebsiteMissing           = "company_website_missing"
	ActionErrorVisitingWebsite     = "error_visiting_website"
	ActionClassificationError      = "classification_error"
	ActionJobSectionFound          = "job_section_found"
	ActionJobSectionNotFound       = "job_section_not_found"
	ActionVisitingCareersPage      = "visiting_careers_page"
	ActionErrorVisitingCareersPage = "error_visiting_careers_page"
	ActionContactAnalyzed          = "contact_analyzed"
	ActionGeneralSearch            = "general_search"
	ActionError                    = "error"
)

// Classifier is the page-classification boundary (ai.Classifier in production).
type Classifier interface {
	ClassifyCareersSection(ctx context.Context, page *models.PageContent, v models.Vacancy) (ai.CareersVerdict, error)
	ClassifyContactMethod(ctx context.Context, page *models.PageContent, v models.Vacancy) (ai.ContactVerdict, error)
}

type Orchestrator struct {
	launcher   browser.Launcher
	classifier Classifier
	searcher   scraper.Searcher
	timeout    time.Duration
	now        func() time.Time
}

type Option func(*Orchestrator)

// WithNavigationTimeout bounds each page open.
func WithNavigationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithClock replaces time.Now for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(l browser.Launcher, c Classifier, s scraper.Searcher, opts ...Option) *Orchestrator {
	if s == nil {
		s = scraper.Stub{}
	}
	o := &Orchestrator{
		launcher:   l,
		classifier: c,
		searcher:   s,
		timeout:    browser.DefaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DiscoverContact runs one discovery for v. It always returns a result; the
// browser session it opens is closed before returning, on every path.
func (o *Orchestrator) DiscoverContact(ctx context.Context, v models.Vacancy) (result models.DiscoveryResult) {
	r := &run{o: o, vacancy: v, stage: StageStart}
	r.result.ContactMethod = models.ContactNone

	nav := browser.NewNavigator(o.launcher, o.timeout)
	defer func() {
		if p := recover(); p != nil {
			r.log(ActionError, "", fmt.Sprintf("discovery aborted: %v", p))
		}
		if err := nav.Close(); err != nil {
			r.log(ActionError, "", "closing browser session: "+err.Error())
		}
		r.enter(StageDone)
		result = r.result
	}()

	log.Printf("🔍 [discovery] %s @ %s", v.Title, v.Employer.Name)
	if !r.companySite(ctx, nav) {
		r.generalSearch(ctx)
	}
	return r.result
}

type run struct {
	o       *Orchestrator
	vacancy models.Vacancy
	stage   Stage
	result  models.DiscoveryResult
}

func (r *run) enter(s Stage) {
	r.stage = s
}

func (r *run) log(action, result, errText string) {
	r.result.Log = append(r.result.Log, models.LogEntry{
		Timestamp: r.o.now(),
		Action:    action,
		Result:    result,
		Error:     errText,
	})
	if errText != "" {
		log.Printf("⚠️ [discovery] %s %s: %s", r.stage, action, errText)
	} else {
		log.Printf("   [discovery] %s %s: %s", r.stage, action, result)
	}
}

// companySite runs the two hops. It reports whether the run is complete.
func (r *run) companySite(ctx context.Context, nav *browser.Navigator) bool {
	site := strings.TrimSpace(r.vacancy.Employer.SiteURL)
	if site == "" {
		r.log(ActionWebsiteMissing, "vacancy has no company website", "")
		return false
	}

	r.log(ActionVisitingWebsite, site, "")
	home, err := nav.Open(ctx, site)
	if err != nil {
		r.log(ActionErrorVisitingWebsite, "", err.Error())
		return false
	}
	r.enter(StageCompanySiteVisited)

	careers, err := r.o.classifier.ClassifyCareersSection(ctx, home, r.vacancy)
	if err != nil {
		r.log(ActionClassificationError, "", err.Error())
	}

	careersURL := resolve(home.URL, careers.URL)
	if !careers.Found || careersURL == "" {
		r.enter(StageCareersNotFound)
		r.log(ActionJobSectionNotFound, fmt.Sprintf("confidence %d: %s", careers.Confidence, careers.Reasoning), "")
		return false
	}
	r.enter(StageCareersFound)
	r.log(ActionJobSectionFound, fmt.Sprintf("%s (confidence %d)", careersURL, careers.Confidence), "")

	page := home
	if careersURL != home.URL {
		r.log(ActionVisitingCareersPage, careersURL, "")
		page, err = nav.Open(ctx, careersURL)
		if err != nil {
			r.log(ActionErrorVisitingCareersPage, "", err.Error())
			return false
		}
	}

	contact, err := r.o.classifier.ClassifyContactMethod(ctx, page, r.vacancy)
	if err != nil {
		r.log(ActionClassificationError, "", err.Error())
	}
	r.enter(StageContactAnalyzed)

	r.result.Found = true
	r.result.SourceURL = &careersURL
	r.result.ContactMethod = contact.Method
	r.result.Confidence = contact.Confidence
	r.result.Contacts = contact.Contacts
	r.log(ActionContactAnalyzed, fmt.Sprintf("method %s, confidence %d: %s", contact.Method, contact.Confidence, contact.Reasoning), "")
	return true
}

func (r *run) generalSearch(ctx context.Context) {
	r.enter(StageGeneralSearch)
	if err := ctx.Err(); err != nil {
		r.log(ActionError, "", "discovery cancelled: "+err.Error())
		return
	}

	res, err := r.o.searcher.Search(ctx, r.vacancy)
	if err != nil {
		r.log(ActionGeneralSearch, "", fmt.Sprintf("%s: %v", r.o.searcher.Name(), err))
		return
	}
	note := res.Note
	if note == "" {
		note = "nothing found"
	}
	r.log(ActionGeneralSearch, fmt.Sprintf("%s: %s", r.o.searcher.Name(), note), "")

	if res.Found {
		r.result.Found = true
		if res.SourceURL != "" {
			src := res.SourceURL
			r.result.SourceURL = &src
		}
		r.result.ContactMethod = res.Method
		r.result.Confidence = res.Confidence
		r.result.Contacts = res.Contacts
	}
}

// resolve makes ref absolute against base; empty when ref is empty or bad.
func resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || u.IsAbs() {
		return u.String()
	}
	return b.ResolveReference(u).String()
}
