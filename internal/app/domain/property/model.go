// Package property defines the certificate record at the heart of the
// certification workflow.
package property

import "time"

// MintingStatus is the workflow state of a certificate. pending is the only
// non-terminal state.
type MintingStatus string

const (
	StatusPending  MintingStatus = "pending"
	StatusApproved MintingStatus = "approved"
	StatusRejected MintingStatus = "rejected"
)

// Valid reports whether s is a known status value.
func (s MintingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transition.
func (s MintingStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Certificate is a property certification record. PropertyID is externally
// supplied and unique for all time; the store enforces the constraint.
type Certificate struct {
	ID              string   `json:"id"`
	PropertyID      string   `json:"propertyId"`
	ReraPermit      string   `json:"reraPermit"`
	DeveloperName   string   `json:"developerName"`
	ProjectName     string   `json:"projectName"`
	Location        string   `json:"location"`
	UnitType        string   `json:"unitType"`
	BrokerCompanies []string `json:"brokerCompany"`
	Description     string   `json:"description"`
	Bedrooms        string   `json:"bedrooms,omitempty"`
	Bathrooms       string   `json:"bathrooms,omitempty"`
	AreaSqFt        string   `json:"areaSqFt,omitempty"`

	ImageCID string `json:"imageCid"`
	ImageURL string `json:"imageUrl"`
	FileCID  string `json:"fileCid,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`

	VerificationDate int64  `json:"verificationDate"`
	VerificationHash string `json:"verificationHash"`
	TokenURI         string `json:"tokenUri"`
	ExpiresAt        int64  `json:"expiresAt"`

	MintingStatus       MintingStatus `json:"mintingStatus"`
	MintTransactionHash string        `json:"mintTransactionHash,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
