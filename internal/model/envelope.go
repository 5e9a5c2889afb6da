package model

// Envelope is the payload published to Kafka (via Debezium outbox SMT).
type Envelope struct {
	SubmissionID string `json:"submission_id"` // ULID
	FormID       int64  `json:"form_id"`
}
