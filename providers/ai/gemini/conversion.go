package gemini

import "github.com/genstack/genstack/providers/ai"

// generateContentRequest is the wire format for models/<model>:generateContent.
type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// requestToGemini converts the provider-neutral request to Gemini's wire
// format. Gemini uses "model" for assistant turns and a dedicated
// systemInstruction field for the system prompt.
func requestToGemini(request ai.ChatRequest) generateContentRequest {
	req := generateContentRequest{}

	if request.SystemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: request.SystemPrompt}}}
	}

	for _, message := range request.Messages {
		role := "user"
		if message.Role == ai.RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: message.Content}}})
	}

	if request.Temperature != 0 || request.MaxTokens != 0 {
		req.GenerationConfig = &generationConfig{
			Temperature:     request.Temperature,
			MaxOutputTokens: request.MaxTokens,
		}
	}

	return req
}

func responseToGeneric(model string, resp generateContentResponse) *ai.ChatResponse {
	candidate := resp.Candidates[0]

	var text string
	for _, p := range candidate.Content.Parts {
		text += p.Text
	}

	out := &ai.ChatResponse{
		Model:        model,
		Content:      text,
		FinishReason: candidate.FinishReason,
	}
	if resp.UsageMetadata != nil {
		out.Usage = &ai.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out
}
