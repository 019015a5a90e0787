package models

// AnalysisResult is the AI provider's answer for one deployment error.
type AnalysisResult struct {
	RootCause      string `json:"root_cause"`
	SuggestedPatch string `json:"suggested_patch"`
	Degraded       bool   `json:"degraded,omitempty"` // true when produced from a template after retries ran out
}

// AnalysisRequest carries the context the AI provider needs.
type AnalysisRequest struct {
	ErrorText string   `json:"error_text"`
	LogLines  []string `json:"log_lines,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata is the minimal deployment context shared with the AI provider.
type Metadata struct {
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	Branch      string      `json:"branch"`
}
