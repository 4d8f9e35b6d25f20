package config

// GetDefaultSystemPrompt returns the system prompt sent with every model call
func GetDefaultSystemPrompt() string {
	return `You are a careful research talent scout. Judge only from the information given, never invent publications or affiliations, and follow the requested output format exactly.`
}
