package rag

import (
	"context"
	"fmt"
)

const greetingPromptTemplate = `You are a friendly and caring medical information assistant.
A user has just returned to the chat. Their last message to you was about: "%s"

Your task is to craft a warm, welcoming, and polite follow-up question.
- Acknowledge their return.
- Gently refer to their previous concern without being too specific or clinical.
- Ask how they are doing regarding that issue or if they have any more questions about it.
- Keep it concise (1-2 sentences).

Example: "Welcome back! I hope you're doing well. I was just thinking about your question regarding [topic], and I wanted to see how things are going."

Your Answer:`

// Greet produces the session-opening message. lastUserMessage is the
// returning user's most recent message, or empty for a first-time
// user. Like Answer, Greet never returns an error: a first-time user
// gets a fixed welcome, a missing API key or a failed generation gets
// a fixed returning-user greeting. The LLM is only consulted when
// there is a prior message to refer back to.
func (s *System) Greet(ctx context.Context, lastUserMessage string) (greeting string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in greeting", "panic", r)
			greeting = GreetingFallback
		}
	}()

	if lastUserMessage == "" {
		return GreetingNewUser
	}
	if !s.llm.Configured() {
		return GreetingNoKey
	}

	text, err := s.llm.Generate(ctx, fmt.Sprintf(greetingPromptTemplate, lastUserMessage))
	if err != nil {
		s.logger.Warn("greeting generation failed", "error", err)
		return GreetingFallback
	}
	return text
}
