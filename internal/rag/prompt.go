package rag

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/history"
)

// answerPromptTemplate is the single context-aware prompt sent for a
// chat turn. Placeholders, in order: conversation history, off-topic
// redirect, disclaimer, retrieved context, user query.
const answerPromptTemplate = `### Persona
You are a knowledgeable, friendly, and helpful medical information assistant. You have a memory of the recent conversation.

### Core Task
Your goal is to answer the user's latest message accurately by following these rules in order.

### Recent Conversation History
(This is the conversation so far. Use it for context, for example, to see if the user is asking a follow-up question.)
%s

### Rules of Engagement
1.  **Off-Topic**: If the user's latest message is clearly NOT related to medicine, health, or wellness, you MUST politely state your purpose. Respond with: "%s"

2.  **Medical Question**: If the user asks a medical question, you MUST follow this process:
    a. **Prioritize Provided Information:** First, check if the "Provided Medical Information" below contains a relevant answer to the user's question. If it does, use it to construct your answer.
    b. **Seamless Fallback:** If the "Provided Medical Information" is empty or does not answer the question, you MUST immediately use your own general knowledge to provide a complete and accurate answer. **Never state that you couldn't find it in your database.** Simply proceed to answer.
    c. **Disclaimer:** Always end any medical-related answer with this disclaimer: "%s"

### Provided Medical Information
(This is extra information retrieved from a knowledge base that may be relevant to the user's latest message.)
%s

### User's Latest Message
"%s"

### Your Answer:`

// composePrompt renders the full chat prompt. It is a pure function of
// its inputs: identical arguments always yield byte-identical output.
// Empty history or context leave their sections blank rather than
// dropping them, so the section ordering is stable.
func composePrompt(query string, window []history.Message, docs []string) string {
	return fmt.Sprintf(answerPromptTemplate,
		renderHistory(window),
		OffTopicReply,
		Disclaimer,
		strings.Join(docs, "\n"),
		query,
	)
}

// renderHistory formats the conversation window oldest-first as
// "Sender: message" lines.
func renderHistory(window []history.Message) string {
	lines := make([]string, 0, len(window))
	for _, msg := range window {
		lines = append(lines, capitalize(string(msg.Sender))+": "+msg.Message)
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
