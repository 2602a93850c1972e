package reporting

import "time"

// TimeRange filters by record creation time. Half-open: [From, To).
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one conversation.
type CallsSummaryRequest struct {
	ConversationID string    `json:"conversation_id"`
	Range          TimeRange `json:"range"`
}

// CallsSummary aggregates terminal call records.
type CallsSummary struct {
	ConversationID string `json:"conversation_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	MissedCalls    int `json:"missed_calls"`
	DeclinedCalls  int `json:"declined_calls"`
	BusyCalls      int `json:"busy_calls"`
	FailedCalls    int `json:"failed_calls"`

	OutgoingCalls int `json:"outgoing_calls"`
	IncomingCalls int `json:"incoming_calls"`

	TotalDurationMs   int64 `json:"total_duration_ms"`
	AverageDurationMs int64 `json:"average_duration_ms"`

	// ConnectionRate is connected calls over total.
	ConnectionRate float64 `json:"connection_rate"`
}
