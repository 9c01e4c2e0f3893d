package services

import (
	"fmt"
	"strings"

	"medical-rag-chatbot/models"
)

// NoContextMessage is returned without calling the LLM when retrieval
// finds nothing relevant.
const NoContextMessage = "Sorry, I could not find relevant information in the medical documents to answer your question."

const systemInstruction = `You are a medical information assistant.
Answer the question in 2-3 short lines using only the context below.
If the context does not contain the answer, say that you don't know.
Do not make up information and do not give a diagnosis.`

// BuildPrompt assembles the fixed prompt from the retrieved chunks and the
// question.
func BuildPrompt(question string, results []models.SearchResult) string {
	var prompt strings.Builder

	prompt.WriteString(systemInstruction)
	prompt.WriteString("\n\n")

	if len(results) == 1 {
		prompt.WriteString("Context:\n")
		prompt.WriteString(strings.TrimSpace(results[0].Chunk.Text))
		prompt.WriteString("\n\n")
	} else {
		for i, r := range results {
			prompt.WriteString(fmt.Sprintf("Context %d:\n%s\n\n", i+1, strings.TrimSpace(r.Chunk.Text)))
		}
	}

	prompt.WriteString("Question: ")
	prompt.WriteString(question)
	prompt.WriteString("\n\nAnswer:")

	return prompt.String()
}
