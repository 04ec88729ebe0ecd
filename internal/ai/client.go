package ai

import (
	"context"
	"fmt"
)

// Provider is a language-model backend. Complete returns the raw model text,
// which the classifier expects to be a JSON object.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// Schema, when set, asks the provider to constrain the output shape.
	// Providers without schema support fall back to plain JSON mode.
	Schema *Schema
}

type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeInteger PropertyType = "integer"
	TypeBoolean PropertyType = "boolean"
	TypeObject  PropertyType = "object"
)

type Property struct {
	Name       string
	Type       PropertyType
	Enum       []string
	Nullable   bool
	Properties []Property
	Required   []string
}

// Schema describes the top-level JSON object a classification must return.
type Schema struct {
	Properties []Property
	Required   []string
}

// ProviderError carries the HTTP status of a failed provider call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
