package domain

import "time"

// PushPayload is the provider-independent body of a push message.
type PushPayload struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Data     Metadata `json:"data,omitempty"`
	Priority Priority `json:"priority,omitempty"`
}

// PushResult is the outcome of a single-device send.
type PushResult struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

// MulticastResult partitions a multi-device send per token. Results is
// in the same order as the input token list.
type MulticastResult struct {
	Success      bool         `json:"success"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
	Results      []PushResult `json:"results,omitempty"`
	Errors       []string     `json:"errors,omitempty"`
}

// PushStats summarizes push delivery volume over a time range.
type PushStats struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Sent        int64     `json:"sent"`
	Failed      int64     `json:"failed"`
	Invalidated int64     `json:"invalidated"`
}
