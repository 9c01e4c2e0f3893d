package models

import "time"

// AskRequest is the JSON body accepted by the API variant of the form.
type AskRequest struct {
	Question string `json:"question" form:"question"`
}

// Answer is the transient result of one question.
type Answer struct {
	Question  string         `json:"question"`
	Text      string         `json:"answer"`
	NoContext bool           `json:"no_context"`
	Sources   []SearchResult `json:"sources,omitempty"`
	Prompt    string         `json:"-"`
	Latency   time.Duration  `json:"-"`
}

// AskResponse is returned by POST /api/ask.
type AskResponse struct {
	Answer    string         `json:"answer"`
	NoContext bool           `json:"no_context"`
	Sources   []SearchResult `json:"sources,omitempty"`
	LatencyMS int64          `json:"latency_ms"`
	RequestID string         `json:"request_id,omitempty"`
}
