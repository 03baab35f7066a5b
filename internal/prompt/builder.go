// Package prompt builds the RAG generation prompt, grounded on the
// original source's core/promptbuilder.py PromptBuilder.
package prompt

import (
	"fmt"
	"strings"
)

// Type names a prompt template.
type Type string

// RAGGeneration is the only template this package builds today, matching
// the original source's scope.
const RAGGeneration Type = "rag_generation"

const ragSystemPrompt = `You are a careful research assistant. Answer the user's question using only the information in the provided context blocks. Every claim you make must be supported by at least one context block, and you must cite your sources using bracketed numbers that refer to the chunk numbers given in the context, for example [1] or [1, 3]. If the context does not contain enough information to answer the question, say so plainly instead of guessing.`

const ragUserTemplate = `Context:
%s

Question: %s

Answer the question using the context above. Cite the chunk number(s) you relied on in brackets, e.g. [1] or [1, 3].`

// Messages is the rendered system/user pair ready to hand to an llm.Provider.
type Messages struct {
	System string
	User   string
}

// Builder renders the RAG prompt templates.
type Builder struct{}

// New returns a Builder.
func New() *Builder { return &Builder{} }

// BuildRAGGeneration renders the system and user messages for a generation
// turn given an already-assembled context block string and the user's
// question.
func (b *Builder) BuildRAGGeneration(contextBlock, question string) Messages {
	return Messages{
		System: ragSystemPrompt,
		User:   fmt.Sprintf(ragUserTemplate, contextBlock, strings.TrimSpace(question)),
	}
}
