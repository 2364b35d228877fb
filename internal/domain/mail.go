package domain

import "time"

type MailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MailEvent is the envelope published to the outbound mail topic.
type MailEvent struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	MailMessage
}
