package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider uses the Gemini API with a response schema, so the model
// output is constrained server-side.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey, baseURL string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(baseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(baseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Complete(ctx context.Context, r Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(r.Temperature)),
		MaxOutputTokens:  int32(r.MaxTokens),
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
	}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	if r.Schema != nil {
		cfg.ResponseSchema = toGenaiSchema(r.Schema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, r.Model, genai.Text(r.Prompt), cfg)
	if err != nil {
		return "", g.classifyErr(err)
	}
	return resp.Text(), nil
}

func (g *GeminiProvider) classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: g.Name(), StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return err
}

func toGenaiSchema(s *Schema) *genai.Schema {
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       toGenaiProperties(s.Properties),
		Required:         s.Required,
		PropertyOrdering: propertyNames(s.Properties),
	}
}

func toGenaiProperties(props []Property) map[string]*genai.Schema {
	out := make(map[string]*genai.Schema, len(props))
	for _, p := range props {
		sch := &genai.Schema{Type: genaiType(p.Type), Enum: p.Enum}
		if p.Nullable {
			sch.Nullable = genai.Ptr(true)
		}
		if p.Type == TypeObject {
			sch.Properties = toGenaiProperties(p.Properties)
			sch.Required = p.Required
		}
		out[p.Name] = sch
	}
	return out
}

func genaiType(t PropertyType) genai.Type {
	switch t {
	case TypeInteger:
		return genai.TypeInteger
	case TypeBoolean:
		return genai.TypeBoolean
	case TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func propertyNames(props []Property) []string {
	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	return names
}
