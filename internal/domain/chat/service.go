// Package chat answers patient questions about their prescribed medications
// through the AI client, with the medication list injected as context and a
// guardrail prompt keeping replies on topic.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	answerMaxTokens = 500

	systemPrompt = "You are a helpful medical assistant chatbot that answers questions about prescribed medications."
)

// MedicationContext is one medication line handed to the model as context.
type MedicationContext struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Instructions string `json:"instructions"`
}

// Generator produces a completion for a system/user message pair.
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
}

type Service struct {
	gen Generator
	log zerolog.Logger
}

func NewService(gen Generator, log zerolog.Logger) *Service {
	return &Service{gen: gen, log: log}
}

// Answer asks the model the patient's question, scoped to the given
// medication list.
func (s *Service) Answer(ctx context.Context, question string, meds []MedicationContext) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is required")
	}

	answer, err := s.gen.Generate(ctx, systemPrompt, buildPrompt(question, meds), answerMaxTokens)
	if err != nil {
		return "", err
	}
	s.log.Debug().Int("answer_len", len(answer)).Msg("answered prescription question")
	return answer, nil
}

func buildPrompt(question string, meds []MedicationContext) string {
	lines := make([]string, len(meds))
	for i, med := range meds {
		lines[i] = fmt.Sprintf("- %s (%s): Take %s. %s", med.Name, med.Dosage, med.Frequency, med.Instructions)
	}

	return fmt.Sprintf(`You are a helpful medical assistant chatbot. Answer the following question about these prescribed medications:

Current Medications:
%s

Patient Question: %s

Important guidelines for your response:
1. Only answer questions about the medications listed above
2. If asked about side effects, always advise to consult a healthcare provider
3. Keep responses clear, concise, and easy to understand
4. If you cannot answer based on the information provided, say so
5. Never recommend medications or changes to the prescription
6. For questions about timing, refer to the specific schedule provided
7. Include reminders about medication safety when relevant

Please provide your response:`, strings.Join(lines, "\n"), question)
}
