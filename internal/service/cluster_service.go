package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"classquiz-service/internal/models"
)

// TextGenerator is the classification capability: given an instruction block
// and the enumerated responses, it returns the model's textual payload.
type TextGenerator interface {
	GenerateContent(ctx context.Context, systemInstruction, userContent string) (string, error)
}

// defaultPromptTemplate is the built-in clustering instruction block. The
// wording is an asset, not control flow: deployments can swap it via
// CLUSTER_PROMPT_FILE without touching the orchestration contract.
const defaultPromptTemplate = `
You are a teacher grouping student answers into distinct categories:
1) Correct
2) Specific Misconceptions (each misconception should be a separate group)
3) Irrelevant (anything that is not under specific misconceptions or correct answer)

Note that the total number of categories should be exactly {{.CategoryCount}}: one for correct answers, one per misconception, and one for irrelevant answers.

Question: "{{.Question}}"

Correct Answers:
{{- range .CorrectAnswers}}
- {{.}}
{{- end}}

Misconceptions (Each should be a separate category):
{{- range $i, $m := .Misconceptions}}
- Misconception {{inc $i}}: {{$m}}
{{- end}}

Your goal is to group student responses into separate categories. If multiple misconceptions exist, DO NOT group them under one label. Each misconception should have its own group with a distinct label and description.

Please return ONLY valid JSON in this format:

{
  "clusters": [
    {
      "clusterId": 0,
      "clusterLabel": "Correct",
      "clusterDescription": "Answers that align with correct reasoning.",
      "members": [
        { "username": "Alice", "response": "..." }
      ]
    },
    {
      "clusterId": 1,
      "clusterLabel": "Misconception: [Title of Misconception 1]",
      "clusterDescription": "Explain why this misconception occurs...",
      "members": [
        { "username": "Bob", "response": "..." }
      ]
    },
    {
      "clusterId": {{.IrrelevantID}},
      "clusterLabel": "Irrelevant",
      "clusterDescription": "Responses that are off-topic or unrelated.",
      "members": [
        { "username": "David", "response": "..." }
      ]
    }
  ]
}

Be strict in your clustering. Again, you should only have the exact number of misconception clusters as what is defined here.
`

type promptData struct {
	Question       string
	CorrectAnswers []string
	Misconceptions []string
	CategoryCount  int
	IrrelevantID   int
}

// ClusterService builds one structured classification request from the quiz
// context and relays the model's structured verdict. Either the full parsed
// ClusterSet comes back or a distinct failure; no partial results, no
// retries, no fallback heuristic.
type ClusterService struct {
	generator  TextGenerator
	promptTmpl *template.Template
}

// NewClusterService wires the orchestrator. promptText overrides the built-in
// instruction template when non-empty.
func NewClusterService(generator TextGenerator, promptText string) (*ClusterService, error) {
	if promptText == "" {
		promptText = defaultPromptTemplate
	}

	tmpl, err := template.New("cluster-prompt").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(promptText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cluster prompt template: %w", err)
	}

	return &ClusterService{generator: generator, promptTmpl: tmpl}, nil
}

func (s *ClusterService) Cluster(
	ctx context.Context,
	question string,
	correctAnswers, misconceptions []string,
	responses []models.StudentResponse,
) (*models.ClusterSet, error) {
	instructions, err := s.buildInstructions(question, correctAnswers, misconceptions)
	if err != nil {
		return nil, err
	}

	raw, err := s.generator.GenerateContent(ctx, instructions, buildResponseBlock(responses))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var set models.ClusterSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, &InvalidModelOutputError{RawOutput: raw}
	}

	return &set, nil
}

// buildInstructions renders the instruction block. Category count is fixed at
// 1 (correct) + one per misconception + 1 (irrelevant); the classifier never
// picks its own count.
func (s *ClusterService) buildInstructions(question string, correctAnswers, misconceptions []string) (string, error) {
	data := promptData{
		Question:       question,
		CorrectAnswers: correctAnswers,
		Misconceptions: misconceptions,
		CategoryCount:  len(misconceptions) + 2,
		IrrelevantID:   len(misconceptions) + 1,
	}

	var b strings.Builder
	if err := s.promptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render cluster prompt: %w", err)
	}

	return b.String(), nil
}

// buildResponseBlock enumerates responses one line per respondent, tagging
// each with its ordinal and username.
func buildResponseBlock(responses []models.StudentResponse) string {
	lines := make([]string, 0, len(responses))
	for i, r := range responses {
		lines = append(lines, fmt.Sprintf("Student %d (%s): %s", i+1, r.Username, r.Response))
	}
	return strings.Join(lines, "\n")
}
