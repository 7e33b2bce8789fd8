package domain

import (
	"encoding/json"
	"time"
)

type JobKind string

const (
	JobKindWebhook JobKind = "webhook"
	JobKindEmail   JobKind = "email"
)

type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusInFlight JobStatus = "in_flight"
	JobStatusDone     JobStatus = "done"
	JobStatusDead     JobStatus = "dead"
)

// NotificationJob is one unit of at-least-once delivery work. Jobs reference
// their session by id only and survive independently of session mutation.
type NotificationJob struct {
	ID          string          `json:"id" db:"id"`
	SessionID   string          `json:"session_id" db:"session_id"`
	Kind        JobKind         `json:"kind" db:"kind"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Attempt     int             `json:"attempt" db:"attempt"`
	MaxAttempts int             `json:"max_attempts" db:"max_attempts"`
	NextRunAt   time.Time       `json:"next_run_at" db:"next_run_at"`
	Status      JobStatus       `json:"status" db:"status"`
	LastError   string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// WebhookEvent is the body POSTed to the merchant endpoint. The session id is
// always present so the merchant can deduplicate redelivery on their side.
type WebhookEvent struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Plan      string `json:"plan"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// WebhookJobPayload carries everything a webhook delivery needs except the
// merchant secret, which is resolved at send time and never stored in a job.
type WebhookJobPayload struct {
	MerchantID string       `json:"merchant_id"`
	Event      WebhookEvent `json:"event"`
}

type EmailJobPayload struct {
	To        string            `json:"to"`
	Template  string            `json:"template"`
	MergeData map[string]string `json:"merge_data"`
}

const (
	EventPaymentCompleted = "payment.completed"

	EmailTemplatePaymentConfirmation = "payment_confirmation"
)
