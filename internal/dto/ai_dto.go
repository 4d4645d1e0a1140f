package dto

import "github.com/noah-isme/huddle-api/internal/models"

// SummarizeRequest asks for a digest of the latest messages in a timeline.
type SummarizeRequest struct {
	ChannelID      uint `json:"channel_id"`
	ConversationID uint `json:"conversation_id"`
	Limit          int  `json:"limit" validate:"omitempty,min=1,max=200"`
}

// Target returns the timeline addressed by the request.
func (r SummarizeRequest) Target() models.Target {
	return models.Target{ChannelID: r.ChannelID, ConversationID: r.ConversationID}
}

// SummaryResponse carries the digest. Available is false when the assistant
// could not be reached.
type SummaryResponse struct {
	Available    bool   `json:"available"`
	Summary      string `json:"summary"`
	MessageCount int    `json:"message_count"`
}

// SmartReplyRequest asks for reply suggestions for a timeline.
type SmartReplyRequest struct {
	ChannelID      uint `json:"channel_id"`
	ConversationID uint `json:"conversation_id"`
}

// Target returns the timeline addressed by the request.
func (r SmartReplyRequest) Target() models.Target {
	return models.Target{ChannelID: r.ChannelID, ConversationID: r.ConversationID}
}

// SmartReplyResponse lists at most three suggestions.
type SmartReplyResponse struct {
	Available   bool     `json:"available"`
	Suggestions []string `json:"suggestions"`
}
