package rag

// Canned user-facing sentences. The exact wording is part of the
// pipeline contract: the HTTP layer and the web frontend treat some of
// these as sentinel strings, so change them only together with the
// clients.
const (
	// OffTopicReply is the redirect the model is instructed to return
	// verbatim when the user's message is not about health or wellness.
	OffTopicReply = "I apologize, but as a medical information assistant, I can only provide information related to health topics. How can I help you with a health question?"

	// Disclaimer must terminate every medical answer.
	Disclaimer = "Please remember, this information is for educational purposes only and is not a substitute for professional medical advice."

	// MsgInitFailed is returned when the vector store cannot be opened.
	MsgInitFailed = "Error: RAG components failed to initialize. Please check server logs."

	// MsgInternalError is the catch-all for unexpected pipeline failures.
	MsgInternalError = "An internal error occurred. Please try again later."

	// GreetingNewUser opens a session for a user with no prior history.
	GreetingNewUser = "Hello! I'm your personal medical assistant. How can I help you today?"

	// GreetingNoKey welcomes a returning user when no API key is
	// configured, so no personalized greeting can be generated.
	GreetingNoKey = "Welcome back! How can I help you today?"

	// GreetingFallback welcomes a returning user when greeting
	// generation fails for any other reason.
	GreetingFallback = "Welcome back! I hope you're doing well. How can I assist you further today?"
)
