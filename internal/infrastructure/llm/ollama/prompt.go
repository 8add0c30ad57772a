package ollama

import (
	"fmt"
	"strings"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

const bestEffortInstruction = "The question could not be fully clarified. State the assumptions you make and keep the answer general."

func buildAnswerPrompt(req domain.AnswerRequest, catalog *domain.Catalog) string {
	var contextBuilder strings.Builder
	for idx, passage := range req.Passages {
		fmt.Fprintf(&contextBuilder,
			"[ref %d] (source: %s, file: %s, id: %s)\n%s\n\n",
			idx+1,
			catalog.SourceLabel(passage.Chunk.Source),
			passage.Chunk.Source,
			passage.Chunk.ID,
			strings.TrimSpace(passage.Chunk.Text),
		)
	}

	var rules strings.Builder
	rules.WriteString("- Answer only from the reference passages below.\n")
	rules.WriteString("- Cite passages as [ref N] next to each statement they support.\n")
	rules.WriteString("- If the passages are insufficient, say so directly.\n")
	rules.WriteString("- Answer in the language of the question.\n")
	if req.BestEffort {
		rules.WriteString("- " + bestEffortInstruction + "\n")
	}

	return fmt.Sprintf(`You are a legal FAQ assistant for %s.
Rules:
%s
Question:
%s

Reference passages:
%s`, req.Domain.Label, rules.String(), strings.TrimSpace(req.Question), contextBuilder.String())
}
