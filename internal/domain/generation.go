package domain

import "time"

// GenerationType enumerates supported generation categories.
type GenerationType string

const (
	GenerationTypeImage GenerationType = "image"
	GenerationTypeVideo GenerationType = "video"
	GenerationTypeText  GenerationType = "text"
)

// GenerationStatus enumerates the local, coarse-grained lifecycle states.
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// Generation tracks one asynchronous generation task end to end: the local
// record, the remote task at the fulfilling provider, and the billing cost
// quoted at creation time.
type Generation struct {
	ID           string
	UserID       string
	Type         GenerationType
	SubType      string
	Status       GenerationStatus
	Provider     string
	ModelID      string
	RemoteTaskID string
	WebhookToken string
	Prompt       string
	ParamsJSON   []byte
	CreditsCost  int
	ResultURLs   []string
	FailReason   string
	FailCode     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GenerationUpdate captures a partial, keyed-by-id mutation. Nil fields are
// left untouched by the store.
type GenerationUpdate struct {
	Status       *GenerationStatus
	Provider     *string
	ModelID      *string
	RemoteTaskID *string
	ResultURLs   []string
	FailReason   *string
	FailCode     *string
}
