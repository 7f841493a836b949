// Package broker defines broker contacts attached to a developer.
package broker

import "time"

// Broker belongs to exactly one developer and is unique by email.
type Broker struct {
	ID          string    `json:"id"`
	Name        string    `json:"brokerName"`
	Email       string    `json:"brokerEmail"`
	ContactNo   string    `json:"contactNo"`
	DeveloperID string    `json:"developerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
