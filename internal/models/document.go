package models

import "time"

// MergeRun is the Firestore record of a remote merge. It tracks the status
// and outcome of one request.
type MergeRun struct {
	Inputs              []string  `firestore:"inputs,omitempty"`
	Output              string    `firestore:"output,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	SourceCount         int       `firestore:"sourceCount,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	ExecutionID         string    `firestore:"executionId,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}
