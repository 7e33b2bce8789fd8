package domain

import "time"

type Merchant struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Active           bool      `json:"active" db:"active"`
	ReceivingAddress string    `json:"receiving_address" db:"receiving_address"`
	WebhookURL       string    `json:"webhook_url" db:"webhook_url"`
	WebhookSecret    string    `json:"-" db:"webhook_secret"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
