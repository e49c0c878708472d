// Package events defines the topics and payloads published after a local
// transaction commits. Delivery is best effort: a failed publish is logged and
// never unwinds the committed transaction.
package events

import "time"

const (
	RoundStarted     = "round.started"
	RoundGuessing    = "round.guessing"
	RoundCompleted   = "round.completed"
	RoundExtended    = "round.extended"
	CommentPosted    = "comment.posted"
	EveryoneFinished = "round.everyone_finished"
	BackupRequested  = "round.backup_requested"
)

// RoundStagePayload announces a stage transition.
type RoundStagePayload struct {
	RoundNum int64     `json:"round_num"`
	Stage    string    `json:"stage"`
	At       time.Time `json:"at"`
}

// RoundExtendedPayload announces a deadline change.
type RoundExtendedPayload struct {
	RoundNum int64     `json:"round_num"`
	Field    string    `json:"field"`
	NewDate  time.Time `json:"new_date"`
}

// CommentPayload announces a new comment for the notification collaborator.
type CommentPayload struct {
	RoundNum     int64  `json:"round_num"`
	CommentID    int64  `json:"comment_id"`
	ParentAuthor int64  `json:"parent_author"`
	AuthorID     int64  `json:"author_id"`
	Persona      string `json:"persona,omitempty"`
	ReplyTo      *int64 `json:"reply_to,omitempty"`
	URL          string `json:"url"`
}

// EveryoneFinishedPayload signals that every participant flagged themselves
// done guessing. The round is not transitioned; an admin decides.
type EveryoneFinishedPayload struct {
	RoundNum int64 `json:"round_num"`
}

// Publisher is the outbound side of the event bus as seen by the services.
type Publisher interface {
	// Publish marshals payload and publishes it on topic. Callers treat any
	// error as non-fatal.
	Publish(topic string, payload any) error
}

// NoopPublisher discards all events. Used when NATS is not configured and in
// tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, any) error { return nil }
