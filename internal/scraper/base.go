// Package scraper holds the general-search stage: looking for the employer's
// contacts outside its own website (job boards, aggregators). Discovery only
// reaches it when the company site gave nothing.
package scraper

import (
	"context"

	"go-hrskip-automation/internal/models"
)

// Result of a general search. Found=false is the common outcome.
type Result struct {
	Found      bool
	SourceURL  string
	Method     models.ContactMethod
	Confidence int
	Contacts   models.Contacts
	Note       string
}

// Searcher defines the interface every general-search backend implements
type Searcher interface {
	Search(ctx context.Context, v models.Vacancy) (Result, error)

	// Name is the backend name used in discovery logs
	Name() string
}

// Stub is the shipped general search. It never finds anything; real
// backends plug in through Searcher.
type Stub struct{}

func (Stub) Name() string { return "stub" }

func (Stub) Search(ctx context.Context, v models.Vacancy) (Result, error) {
	return Result{Found: false, Method: models.ContactNone, Note: "general search not implemented"}, nil
}
