package protocol

// Turn is one entry of the conversation history sent to a chat provider.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ChatRequest holds parameters for a streaming chat call.
type ChatRequest struct {
	Model             string  `json:"model"`
	SystemInstruction string  `json:"system_instruction,omitempty"`
	History           []Turn  `json:"history"`
	MaxTokens         int     `json:"max_tokens,omitempty"`
	Temperature       float64 `json:"temperature,omitempty"`
}

// ChatResponse is the collected result of a chat call.
type ChatResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Usage tracks token consumption for a single LLM call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// TotalTokens returns the sum of prompt and completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}
