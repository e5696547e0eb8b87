package domain

// JoinChatCommand is the raw join-chat payload, before sanitization.
type JoinChatCommand struct {
	Username string `json:"username"`
	ChatID   string `json:"chatId"`
}

// SendMessageCommand is the raw send-message payload, before sanitization.
type SendMessageCommand struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	ChatID   string `json:"chatId"`
}
