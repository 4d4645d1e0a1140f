package dto

// SearchQuery filters the global search.
type SearchQuery struct {
	Query      string `query:"q" validate:"required,min=1,max=200"`
	ChannelID  uint   `query:"channel_id"`
	FromUserID uint   `query:"from_user_id"`
}

// SearchResponse groups hits by kind.
type SearchResponse struct {
	Messages []MessageResponse `json:"messages"`
	Channels []ChannelResponse `json:"channels"`
	Users    []UserResponse    `json:"users"`
}
