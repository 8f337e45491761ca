// Package analytics normalizes raw upstream conversation payloads into the
// canonical records served to the dashboard. The upstream schema places
// equivalent data under different keys depending on response mode, so every
// extractor here tolerates missing or differently-nested fields.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/futuro/convai-dashboard/internal/domain"
)

const (
	// UnknownDate is returned when a timestamp is zero or missing.
	// A zero epoch must never be rendered as 1970-01-01.
	UnknownDate = "Unknown date"

	noTranscript = "No transcript available"
)

// Conversation is a raw upstream conversation payload.
type Conversation map[string]interface{}

// DurationSecs extracts the call duration in seconds. The detail payload
// nests it under metadata, the list payload carries it at top level.
func DurationSecs(conv Conversation) int {
	if meta := asMap(conv["metadata"]); meta != nil {
		if secs, ok := asInt(meta["call_duration_secs"]); ok {
			return secs
		}
	}
	if secs, ok := asInt(conv["call_duration_secs"]); ok {
		return secs
	}
	return 0
}

// FormatDuration renders seconds as "{minutes}m {seconds}s".
func FormatDuration(secs int) string {
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

// MessageCount prefers the explicit message_count field; when it is zero
// or absent and a transcript list exists, the list length is used.
func MessageCount(conv Conversation) int {
	if count, ok := asInt(conv["message_count"]); ok && count > 0 {
		return count
	}
	if turns := asList(conv["transcript"]); turns != nil {
		return len(turns)
	}
	return 0
}

// TranscriptText flattens the transcript into display text. A list of
// turns is joined as "{Role}: {message}" with a blank line between turns,
// skipping turns with an empty message. A non-list transcript value is
// stringified. When no transcript exists at all, the summary string is
// used, defaulting to a fixed placeholder.
func TranscriptText(conv Conversation) string {
	if raw, present := conv["transcript"]; present && raw != nil {
		if turns := asList(raw); turns != nil {
			parts := make([]string, 0, len(turns))
			for _, t := range turns {
				turn := asMap(t)
				if turn == nil {
					continue
				}
				message := asString(turn["message"])
				if message == "" {
					continue
				}
				role := titleCase(asString(turn["role"]))
				if role == "" {
					role = "Unknown"
				}
				parts = append(parts, role+": "+message)
			}
			if len(parts) > 0 {
				return strings.Join(parts, "\n\n")
			}
		} else {
			return fmt.Sprintf("%v", raw)
		}
	}

	if summary := asString(conv["transcript_summary"]); summary != "" {
		return summary
	}
	return noTranscript
}

// ToolsUsed extracts tool invocations. Turn-level tool_calls and
// tool_results lists take precedence; the top-level analysis.tools_used
// field (list or mapping) is only consulted when no turn carries tool
// data. Entries with no resolvable name are skipped and the result is
// deduplicated by name, keeping the first occurrence.
func ToolsUsed(conv Conversation) []domain.ToolUsage {
	var tools []domain.ToolUsage

	for _, t := range asList(conv["transcript"]) {
		turn := asMap(t)
		if turn == nil {
			continue
		}
		for _, entry := range asList(turn["tool_calls"]) {
			if tool, ok := toolFromEntry(asMap(entry)); ok {
				tools = append(tools, tool)
			}
		}
		for _, entry := range asList(turn["tool_results"]) {
			if tool, ok := toolFromEntry(asMap(entry)); ok {
				tools = append(tools, tool)
			}
		}
	}

	if len(tools) == 0 {
		tools = toolsFromAnalysis(asMap(conv["analysis"]))
	}

	return dedupeByName(tools)
}

// toolFromEntry resolves a tool name from the known field variants, in
// precedence order: name, function.name, tool_name, function_name.
func toolFromEntry(entry map[string]interface{}) (domain.ToolUsage, bool) {
	if entry == nil {
		return domain.ToolUsage{}, false
	}

	fn := asMap(entry["function"])

	name := asString(entry["name"])
	if name == "" && fn != nil {
		name = asString(fn["name"])
	}
	if name == "" {
		name = asString(entry["tool_name"])
	}
	if name == "" {
		name = asString(entry["function_name"])
	}
	if name == "" {
		return domain.ToolUsage{}, false
	}

	description := asString(entry["description"])
	if description == "" && fn != nil {
		description = asString(fn["description"])
	}

	return domain.ToolUsage{
		Name:        name,
		Result:      asString(entry["result"]),
		Description: description,
	}, true
}

func toolsFromAnalysis(analysis map[string]interface{}) []domain.ToolUsage {
	if analysis == nil {
		return nil
	}

	var tools []domain.ToolUsage
	switch used := analysis["tools_used"].(type) {
	case []interface{}:
		for _, entry := range used {
			switch e := entry.(type) {
			case string:
				if e != "" {
					tools = append(tools, domain.ToolUsage{Name: e})
				}
			case map[string]interface{}:
				if tool, ok := toolFromEntry(e); ok {
					tools = append(tools, tool)
				}
			}
		}
	case map[string]interface{}:
		// Mapping form: keys are tool names. Sorted for deterministic output.
		names := make([]string, 0, len(used))
		for name := range used {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tool := domain.ToolUsage{Name: name}
			if detail := asMap(used[name]); detail != nil {
				tool.Result = asString(detail["result"])
				tool.Description = asString(detail["description"])
			}
			tools = append(tools, tool)
		}
	}
	return tools
}

// dedupeByName keeps the first occurrence of each tool name. Always
// returns a non-nil slice so the tools list serializes as [] when empty.
func dedupeByName(tools []domain.ToolUsage) []domain.ToolUsage {
	seen := make(map[string]bool, len(tools))
	out := make([]domain.ToolUsage, 0, len(tools))
	for _, tool := range tools {
		if seen[tool.Name] {
			continue
		}
		seen[tool.Name] = true
		out = append(out, tool)
	}
	return out
}

// CallSuccessful extracts the upstream call outcome, preferring the
// analysis block over the top-level field. Defaults to "unknown".
func CallSuccessful(conv Conversation) string {
	if analysis := asMap(conv["analysis"]); analysis != nil {
		if v := asString(analysis["call_successful"]); v != "" {
			return v
		}
	}
	if v := asString(conv["call_successful"]); v != "" {
		return v
	}
	return "unknown"
}

// Status collapses the upstream call outcome to the dashboard's binary
// status. The mapping is intentionally lossy: every non-success outcome
// is reported as a transfer.
func Status(conv Conversation) string {
	if CallSuccessful(conv) == "success" {
		return "completed"
	}
	return "transferred"
}

// StartTime extracts the conversation start timestamp, preferring the
// metadata block. Returns (zero, false) when absent or zero.
func StartTime(conv Conversation) (time.Time, bool) {
	var secs int
	if meta := asMap(conv["metadata"]); meta != nil {
		secs, _ = asInt(meta["start_time_unix_secs"])
	}
	if secs == 0 {
		secs, _ = asInt(conv["start_time_unix_secs"])
	}
	if secs == 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0), true
}

// FormatDate renders the conversation start time using layout, or
// UnknownDate when the timestamp is zero or missing.
func FormatDate(conv Conversation, layout string) string {
	started, ok := StartTime(conv)
	if !ok {
		return UnknownDate
	}
	return started.Format(layout)
}

// DataCollectionResults extracts the analysis data-collection mapping.
func DataCollectionResults(conv Conversation) map[string]domain.DataCollectionResult {
	results := make(map[string]domain.DataCollectionResult)

	analysis := asMap(conv["analysis"])
	if analysis == nil {
		return results
	}
	for id, raw := range asMap(analysis["data_collection_results"]) {
		entry := asMap(raw)
		if entry == nil {
			continue
		}
		result := domain.DataCollectionResult{
			DataCollectionID: asString(entry["data_collection_id"]),
			Rationale:        asString(entry["rationale"]),
			Value:            stringify(entry["value"]),
		}
		if result.DataCollectionID == "" {
			result.DataCollectionID = id
		}
		if result.Rationale == "" {
			result.Rationale = "No rationale provided"
		}
		if result.Value == "" {
			result.Value = "No value provided"
		}
		results[id] = result
	}
	return results
}

// TranscriptSummary returns the analysis transcript summary, falling back
// to the top-level field, defaulting to a fixed placeholder.
func TranscriptSummary(conv Conversation) string {
	if analysis := asMap(conv["analysis"]); analysis != nil {
		if v := asString(analysis["transcript_summary"]); v != "" {
			return v
		}
	}
	if v := asString(conv["transcript_summary"]); v != "" {
		return v
	}
	return "No summary available"
}

// HasAudio reports whether the conversation has recorded audio. The list
// payload omits the flag, in which case audio is assumed available.
func HasAudio(conv Conversation) bool {
	if v, ok := conv["has_audio"].(bool); ok {
		return v
	}
	return true
}

// ConversationID extracts the upstream conversation identifier.
func ConversationID(conv Conversation) string {
	return asString(conv["conversation_id"])
}

// AgentID extracts the owning agent identifier.
func AgentID(conv Conversation) string {
	return asString(conv["agent_id"])
}

// Summarize builds one dashboard list row from a raw list entry.
func Summarize(conv Conversation, agent domain.AgentInfo) domain.ConversationSummary {
	secs := DurationSecs(conv)

	summary := asString(conv["transcript_summary"])
	if summary == "" {
		summary = agent.Type + " customer interaction"
	}

	return domain.ConversationSummary{
		ID:             ConversationID(conv),
		Title:          agent.Type + " Customer Call",
		Summary:        summary,
		Sentiment:      "neutral",
		Status:         Status(conv),
		Duration:       FormatDuration(secs),
		DurationSecs:   secs,
		Date:           FormatDate(conv, "2006-01-02"),
		Transcript:     "Click 'Call Analysis' to view full transcript",
		HasAudio:       HasAudio(conv),
		MessageCount:   MessageCount(conv),
		CallSuccessful: CallSuccessful(conv),
	}
}

// Analyze builds the data-analysis detail projection from a raw detail
// payload.
func Analyze(conversationID string, conv Conversation, agent domain.AgentInfo) domain.DataAnalysis {
	results := DataCollectionResults(conv)

	return domain.DataAnalysis{
		ConversationID:        conversationID,
		Title:                 agent.Type + " - Detailed Data Analysis",
		Agent:                 agent,
		Duration:              FormatDuration(DurationSecs(conv)),
		Date:                  FormatDate(conv, "2006-01-02 15:04:05"),
		Status:                Status(conv),
		MessageCount:          MessageCount(conv),
		TranscriptSummary:     TranscriptSummary(conv),
		DataCollectionResults: results,
		CallSuccessful:        CallSuccessful(conv),
		HasDataCollection:     len(results) > 0,
	}
}

// Transcribe builds the transcript detail projection.
func Transcribe(conversationID string, conv Conversation) domain.TranscriptDetail {
	return domain.TranscriptDetail{
		ConversationID: conversationID,
		Transcript:     TranscriptText(conv),
		MessageCount:   MessageCount(conv),
		Duration:       FormatDuration(DurationSecs(conv)),
	}
}

// ToolReport builds the tools-used detail projection.
func ToolReport(conversationID string, conv Conversation, agent domain.AgentInfo) domain.ToolsDetail {
	title := conversationID
	if len(title) > 8 {
		title = title[:8]
	}

	return domain.ToolsDetail{
		ConversationID: conversationID,
		Title:          "Conversation " + title + "...",
		Status:         Status(conv),
		Agent:          agent,
		ToolsUsed:      ToolsUsed(conv),
	}
}
