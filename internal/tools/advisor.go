package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/registry"
)

const analystSystem = "You are a medical AI assistant helping with initial symptom analysis."

const analysisPrompt = `As a medical AI assistant, please analyze the following symptoms:

Symptoms: %s
Medical History: %s

Please provide:
1. Possible conditions
2. Severity level (High/Medium/Low)
3. Type of medical expertise needed
4. General advice and self-care recommendations
5. Warning signs to watch for

Format the response as a structured JSON object with the keys possible_conditions,
severity_level, specialist_needed, advice and warning_signs.`

const queryPrompt = `Turn the following request into one concise web search query.
Respond with a JSON object of the form {"query": "..."}.

Request: %s`

type symptomArgs struct {
	Symptoms       string `json:"symptoms"`
	MedicalHistory string `json:"medical_history"`
}

type searchArgs struct {
	Query string `json:"query"`
}

// SymptomReport answers symptom_analysis.
type SymptomReport struct {
	Analysis        map[string]any `json:"analysis"`
	Recommendations []string       `json:"recommendations"`
}

func (b *binder) advisorTools() []registry.Tool {
	return []registry.Tool{
		{
			Name:        SymptomAnalysis,
			Description: "Analyze symptoms and give initial medical advice with a severity level.",
			Parameters: registry.Object(map[string]any{
				"symptoms":        registry.String("The patient's current symptoms"),
				"medical_history": registry.String("Relevant medical history"),
			}, "symptoms"),
			Fn: registry.Typed(b.analyzeSymptoms),
		},
		{
			Name:        WebSearch,
			Description: "Search the web for general information, e.g. hospital services or health topics.",
			Parameters: registry.Object(map[string]any{
				"query": registry.String("What to look up"),
			}, "query"),
			Fn: registry.Typed(b.webSearch),
		},
	}
}

func (b *binder) analyzeSymptoms(ctx context.Context, in symptomArgs) (any, error) {
	if b.Model == nil {
		return nil, unavailable("symptom analysis")
	}
	history := in.MedicalHistory
	if strings.TrimSpace(history) == "" {
		history = "Not provided"
	}

	resp, err := b.Model.Generate(ctx, ports.ModelRequest{
		System: analystSystem,
		Messages: []domain.Message{{
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf(analysisPrompt, in.Symptoms, history),
			CreatedAt: b.now(),
		}},
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, domain.External("symptom analysis", err)
	}

	analysis, ok := ParseJSONObject(resp.Text)
	if !ok {
		b.Logger.Warn("symptom analysis returned no JSON, using fallback", "tool", SymptomAnalysis)
		analysis = fallbackAnalysis(in.Symptoms, resp.Text)
	}
	return &SymptomReport{
		Analysis:        analysis,
		Recommendations: Recommendations(Severity(analysis)),
	}, nil
}

// fallbackAnalysis is used when the model answer cannot be parsed. It keeps
// the raw answer as advice and assumes a medium severity.
func fallbackAnalysis(symptoms, raw string) map[string]any {
	advice := strings.TrimSpace(raw)
	if advice == "" {
		advice = "Please consult a healthcare provider for an evaluation."
	}
	return map[string]any{
		"symptoms":            symptoms,
		"possible_conditions": []any{},
		"severity_level":      "Medium",
		"specialist_needed":   "General Practitioner",
		"advice":              advice,
	}
}

// Severity reads the severity level of an analysis, tolerating key variants
// such as "Severity level" or "severity". Unknown is "".
func Severity(analysis map[string]any) string {
	for k, v := range analysis {
		if !strings.Contains(strings.ToLower(k), "severity") {
			continue
		}
		if s, ok := v.(string); ok {
			return strings.ToLower(strings.TrimSpace(s))
		}
	}
	return ""
}

// Recommendations maps a severity level to patient guidance.
func Recommendations(severity string) []string {
	switch severity {
	case "high":
		return []string{
			"🚨 These symptoms require immediate medical attention",
			"Please seek professional medical care as soon as possible",
			"If symptoms worsen, go to the nearest emergency room",
		}
	case "medium":
		return []string{
			"⚠️ These symptoms should be evaluated by a healthcare provider",
			"Consider scheduling a medical consultation",
			"Monitor your symptoms closely",
		}
	default:
		return []string{
			"📝 These symptoms can likely be managed with self-care",
			"Monitor your condition over the next few days",
		}
	}
}

func (b *binder) webSearch(ctx context.Context, in searchArgs) (any, error) {
	if b.Search == nil {
		return nil, unavailable("web search")
	}
	query := b.searchQuery(ctx, in.Query)
	results, err := b.Search.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// searchQuery asks the model for a tighter query. Any failure falls back to
// the topic as given.
func (b *binder) searchQuery(ctx context.Context, topic string) string {
	if b.Model == nil {
		return topic
	}
	resp, err := b.Model.Generate(ctx, ports.ModelRequest{
		Messages: []domain.Message{{
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf(queryPrompt, topic),
			CreatedAt: b.now(),
		}},
		JSONMode: true,
	})
	if err != nil {
		b.Logger.Debug("query generation failed", "err", err)
		return topic
	}
	parsed, ok := ParseJSONObject(resp.Text)
	if !ok {
		return topic
	}
	if q, ok := parsed["query"].(string); ok && strings.TrimSpace(q) != "" {
		return strings.TrimSpace(q)
	}
	return topic
}

// ParseJSONObject decodes a model answer that should be a JSON object,
// removing a surrounding markdown code fence first.
func ParseJSONObject(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}
