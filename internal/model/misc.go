package model

// LearnedEmoji is a keyword→emoji association the engine has picked up from
// prior AI-assigned emojis, used to bias future emoji choices.
type LearnedEmoji struct {
	Keyword   string
	Emoji     string
	CreatedAt int64
}

// ProcessingStats accumulates wall-clock and token usage across pipeline
// runs, persisted in the settings file (§6).
type ProcessingStats struct {
	TotalAIProcessingSecs    float64 `json:"total_ai_processing_secs"`
	TotalRebuildSecs         float64 `json:"total_rebuild_secs"`
	LastAIProcessingSecs     float64 `json:"last_ai_processing_secs"`
	LastRebuildSecs          float64 `json:"last_rebuild_secs"`
	AIProcessingRuns         int     `json:"ai_processing_runs"`
	RebuildRuns              int     `json:"rebuild_runs"`
	TotalAnthropicInputTokens  int64 `json:"total_anthropic_input_tokens"`
	TotalAnthropicOutputTokens int64 `json:"total_anthropic_output_tokens"`
	TotalOpenAITokens          int64 `json:"total_openai_tokens"`
}
