package properties

import (
	"strings"

	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
)

type attribute struct {
	TraitType   string      `json:"trait_type"`
	Value       interface{} `json:"value"`
	DisplayType string      `json:"display_type,omitempty"`
}

type metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	File        string      `json:"file,omitempty"`
	Attributes  []attribute `json:"attributes"`
}

// metadataDocument builds the token metadata pinned alongside the
// certificate. Attribute order is part of the published schema.
func metadataDocument(cert property.Certificate) metadata {
	doc := metadata{
		Name:        "Certiqas",
		Description: cert.Description,
		Image:       "ipfs://" + cert.ImageCID,
		Attributes: []attribute{
			{TraitType: "Property ID", Value: cert.PropertyID},
			{TraitType: "Developer Name", Value: cert.DeveloperName},
			{TraitType: "Project Name", Value: cert.ProjectName},
			{TraitType: "Location", Value: cert.Location},
			{TraitType: "Broker Company", Value: strings.Join(cert.BrokerCompanies, ",")},
			{TraitType: "Verification Date", Value: cert.VerificationDate, DisplayType: "date"},
			{TraitType: "Verification Hash", Value: cert.VerificationHash},
			{TraitType: "RERA Permit", Value: cert.ReraPermit},
			{TraitType: "Unit Type", Value: cert.UnitType},
			{TraitType: "Bedrooms", Value: orNA(cert.Bedrooms)},
			{TraitType: "Bathrooms", Value: orNA(cert.Bathrooms)},
			{TraitType: "Area (Sq Ft)", Value: orNA(cert.AreaSqFt)},
		},
	}
	if cert.FileCID != "" {
		doc.File = "ipfs://" + cert.FileCID
	}
	return doc
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
