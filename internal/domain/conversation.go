package domain

// ConversationSummary is one row of the dashboard conversation list,
// derived per request from the upstream list payload.
type ConversationSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	Sentiment      string `json:"sentiment"`
	Status         string `json:"status"`
	Duration       string `json:"duration"`
	DurationSecs   int    `json:"durationSecs"`
	Date           string `json:"date"`
	Transcript     string `json:"transcript"`
	HasAudio       bool   `json:"hasAudio"`
	MessageCount   int    `json:"messageCount"`
	CallSuccessful string `json:"callSuccessful"`
}

// ToolUsage is one tool invocation extracted from a conversation.
type ToolUsage struct {
	Name        string `json:"name"`
	Result      string `json:"result"`
	Description string `json:"description"`
}

// DataCollectionResult is one evaluation/data-collection entry from the
// upstream analysis block.
type DataCollectionResult struct {
	DataCollectionID string `json:"data_collection_id"`
	Rationale        string `json:"rationale"`
	Value            string `json:"value"`
}

// DataAnalysis is the detail projection served by the data-analysis route.
type DataAnalysis struct {
	ConversationID        string                          `json:"conversationId"`
	Title                 string                          `json:"title"`
	Agent                 AgentInfo                       `json:"agent"`
	Duration              string                          `json:"duration"`
	Date                  string                          `json:"date"`
	Status                string                          `json:"status"`
	MessageCount          int                             `json:"messageCount"`
	TranscriptSummary     string                          `json:"transcriptSummary"`
	DataCollectionResults map[string]DataCollectionResult `json:"dataCollectionResults"`
	CallSuccessful        string                          `json:"callSuccessful"`
	HasDataCollection     bool                            `json:"hasDataCollection"`
}

// TranscriptDetail is the detail projection served by the transcript route.
type TranscriptDetail struct {
	ConversationID string `json:"conversationId"`
	Transcript     string `json:"transcript"`
	MessageCount   int    `json:"messageCount"`
	Duration       string `json:"duration"`
}

// ToolsDetail is the detail projection served by the tools-used route.
type ToolsDetail struct {
	ConversationID string      `json:"conversationId"`
	Title          string      `json:"title"`
	Status         string      `json:"status"`
	Agent          AgentInfo   `json:"agent"`
	ToolsUsed      []ToolUsage `json:"toolsUsed"`
}
