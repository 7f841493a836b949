// Package properties implements the certification workflow: submission,
// content pinning, verification hashing, the approval state machine and the
// on-chain mint.
package properties

import (
	"context"
	"strings"
	"time"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/metrics"
	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
	"github.com/taimoor511/certiqas-backend/internal/ipfs"
	"github.com/taimoor511/certiqas-backend/internal/ledger"
	"github.com/taimoor511/certiqas-backend/internal/verify"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// Uploader pins content and returns addressable locations.
type Uploader interface {
	PinFile(ctx context.Context, data []byte, name string) (ipfs.Pin, error)
	PinJSON(ctx context.Context, doc interface{}) (string, error)
}

// Minter submits certificate mints and reports the wallet records are
// minted to.
type Minter interface {
	Mint(ctx context.Context, payload ledger.MintPayload) (string, error)
	WalletAddress() string
}

// Clock supplies the current time. Injected so the verification date is
// testable.
type Clock func() int64

// FileUpload is an uploaded artifact.
type FileUpload struct {
	Name string
	Data []byte
}

// SubmissionInput is a certification request. DeveloperName is only honored
// for unrestricted actors; everyone else is pinned to their own company.
type SubmissionInput struct {
	PropertyID      string
	ReraPermit      string
	DeveloperName   string
	ProjectName     string
	Location        string
	UnitType        string
	BrokerCompanies []string
	Description     string
	Bedrooms        string
	Bathrooms       string
	AreaSqFt        string
	Image           *FileUpload
	Document        *FileUpload
}

// PublicQuery filters the public approved-certificate listing.
type PublicQuery struct {
	PropertyID    string
	DeveloperName string
	ProjectName   string
	Page          int
	Limit         int
}

// PublicPage is one page of the public listing.
type PublicPage struct {
	Properties []property.Certificate `json:"properties"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"totalPages"`
}

// Config tunes service behavior.
type Config struct {
	RequireDocumentFile bool
}

// Service is the certification workflow engine.
type Service struct {
	properties storage.PropertyStore
	policy     *policy.Policy
	uploader   Uploader
	minter     Minter
	clock      Clock
	cfg        Config
	log        *logger.Logger
}

// New creates the service. A nil clock defaults to the drift-adjusted
// wall clock.
func New(properties storage.PropertyStore, pol *policy.Policy, uploader Uploader, minter Minter, clock Clock, cfg Config, log *logger.Logger) *Service {
	if clock == nil {
		clock = func() int64 { return verify.VerificationDate(time.Now()) }
	}
	if log == nil {
		log = logger.NewDefault("properties")
	}
	return &Service{
		properties: properties,
		policy:     pol,
		uploader:   uploader,
		minter:     minter,
		clock:      clock,
		cfg:        cfg,
		log:        log,
	}
}

// Submit runs the certification pipeline. Unrestricted actors mint
// immediately and atomically: a failed mint persists nothing. Everyone else
// gets a pending record awaiting a decision.
func (s *Service) Submit(ctx context.Context, actor policy.Actor, input SubmissionInput) (property.Certificate, error) {
	if !s.policy.CanSubmit(actor) {
		return property.Certificate{}, apperr.Forbidden("role %q may not submit properties", actor.Role)
	}

	scope, err := s.policy.ScopeFor(ctx, actor)
	if err != nil {
		return property.Certificate{}, err
	}
	if !scope.Unrestricted {
		input.DeveloperName = scope.DeveloperName
	}

	if err := validateSubmission(&input, s.cfg.RequireDocumentFile); err != nil {
		return property.Certificate{}, err
	}

	if _, err := s.properties.GetPropertyByPropertyID(ctx, input.PropertyID); err == nil {
		return property.Certificate{}, apperr.Conflict("property ID must be unique")
	} else if !apperr.IsNotFound(err) {
		return property.Certificate{}, err
	}

	imagePin, err := s.uploader.PinFile(ctx, input.Image.Data, input.Image.Name)
	if err != nil {
		return property.Certificate{}, err
	}

	var docPin ipfs.Pin
	if input.Document != nil {
		docPin, err = s.uploader.PinFile(ctx, input.Document.Data, input.Document.Name)
		if err != nil {
			return property.Certificate{}, err
		}
	}

	verificationDate := s.clock()
	hash := verify.HexHash(verify.Fields{
		ReraPermit:       input.ReraPermit,
		PropertyID:       input.PropertyID,
		DeveloperName:    input.DeveloperName,
		ProjectName:      input.ProjectName,
		Location:         input.Location,
		UnitType:         input.UnitType,
		BrokerCompanies:  input.BrokerCompanies,
		VerificationDate: verificationDate,
	})

	cert := property.Certificate{
		PropertyID:       input.PropertyID,
		ReraPermit:       input.ReraPermit,
		DeveloperName:    input.DeveloperName,
		ProjectName:      input.ProjectName,
		Location:         input.Location,
		UnitType:         input.UnitType,
		BrokerCompanies:  input.BrokerCompanies,
		Description:      input.Description,
		Bedrooms:         input.Bedrooms,
		Bathrooms:        input.Bathrooms,
		AreaSqFt:         input.AreaSqFt,
		ImageCID:         imagePin.CID,
		ImageURL:         imagePin.URL,
		FileCID:          docPin.CID,
		FileURL:          docPin.URL,
		VerificationDate: verificationDate,
		VerificationHash: hash,
		MintingStatus:    property.StatusPending,
	}

	tokenURI, err := s.uploader.PinJSON(ctx, metadataDocument(cert))
	if err != nil {
		return property.Certificate{}, err
	}
	cert.TokenURI = tokenURI

	if actor.Role == user.RoleSuperAdmin {
		txHash, err := s.mint(ctx, cert)
		if err != nil {
			return property.Certificate{}, err
		}
		cert.MintingStatus = property.StatusApproved
		cert.MintTransactionHash = txHash
	}

	created, err := s.properties.CreateProperty(ctx, cert)
	if err != nil {
		return property.Certificate{}, err
	}

	metrics.RecordSubmission(string(created.MintingStatus))
	s.log.WithField("property_id", created.PropertyID).
		WithField("status", string(created.MintingStatus)).
		Info("property submitted")
	return created, nil
}

// Decide applies an approve or reject decision to a pending record. A mint
// failure on approval leaves the record pending so the decision can be
// retried.
func (s *Service) Decide(ctx context.Context, actor policy.Actor, id string, decision property.MintingStatus) (property.Certificate, error) {
	if !s.policy.CanDecide(actor) {
		return property.Certificate{}, apperr.Forbidden("role %q may not decide submissions", actor.Role)
	}
	if decision != property.StatusApproved && decision != property.StatusRejected {
		return property.Certificate{}, apperr.Validation("decision must be approved or rejected")
	}

	cert, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return property.Certificate{}, err
	}
	if cert.MintingStatus.Terminal() {
		return property.Certificate{}, apperr.Conflict("property already %s", cert.MintingStatus)
	}

	if decision == property.StatusApproved {
		txHash, err := s.mint(ctx, cert)
		if err != nil {
			return property.Certificate{}, err
		}
		cert.MintTransactionHash = txHash
	}
	cert.MintingStatus = decision

	updated, err := s.properties.UpdateProperty(ctx, cert)
	if err != nil {
		return property.Certificate{}, err
	}

	metrics.RecordDecision(string(updated.MintingStatus))
	s.log.WithField("property_id", updated.PropertyID).
		WithField("status", string(updated.MintingStatus)).
		Info("property decided")
	return updated, nil
}

func (s *Service) mint(ctx context.Context, cert property.Certificate) (string, error) {
	payload := ledger.MintPayload{
		To:               s.minter.WalletAddress(),
		ReraPermit:       cert.ReraPermit,
		PropertyID:       cert.PropertyID,
		DeveloperName:    cert.DeveloperName,
		ProjectName:      cert.ProjectName,
		Location:         cert.Location,
		UnitType:         cert.UnitType,
		BrokerCompany:    strings.Join(cert.BrokerCompanies, ","),
		ListingID:        ledger.NewListingID(),
		VerificationDate: cert.VerificationDate,
		VerificationHash: cert.VerificationHash,
		TokenURI:         cert.TokenURI,
		ExpiresAt:        cert.ExpiresAt,
	}
	start := time.Now()
	txHash, err := s.minter.Mint(ctx, payload)
	if err != nil {
		metrics.RecordMint("failed", time.Since(start))
		return "", apperr.Upstream(err, "mint certificate for %s", cert.PropertyID)
	}
	metrics.RecordMint("confirmed", time.Since(start))
	return txHash, nil
}

// List returns records visible to the actor, optionally narrowed by status.
func (s *Service) List(ctx context.Context, actor policy.Actor, status property.MintingStatus) ([]property.Certificate, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown status %q", status)
	}
	scope, err := s.policy.ScopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	filter := storage.ListFilter{Status: status}
	if !scope.Unrestricted {
		filter.DeveloperName = scope.DeveloperName
	}
	return s.properties.ListProperties(ctx, filter)
}

// Get returns a single record if it is within the actor's scope.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (property.Certificate, error) {
	scope, err := s.policy.ScopeFor(ctx, actor)
	if err != nil {
		return property.Certificate{}, err
	}
	cert, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return property.Certificate{}, err
	}
	if !scope.AllowsProperty(cert) {
		return property.Certificate{}, apperr.Forbidden("property belongs to another developer")
	}
	return cert, nil
}

// PublicList returns a page of approved records, newest first.
func (s *Service) PublicList(ctx context.Context, query PublicQuery) (PublicPage, error) {
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}
	if query.Page < 1 {
		return PublicPage{}, apperr.Validation("page must be at least 1")
	}
	if query.Limit < 1 || query.Limit > 100 {
		return PublicPage{}, apperr.Validation("limit must be between 1 and 100")
	}

	certs, total, err := s.properties.ListApprovedProperties(ctx, storage.PublicFilter{
		PropertyID:    query.PropertyID,
		DeveloperName: query.DeveloperName,
		ProjectName:   query.ProjectName,
		Limit:         query.Limit,
		Offset:        (query.Page - 1) * query.Limit,
	})
	if err != nil {
		return PublicPage{}, err
	}

	totalPages := total / query.Limit
	if total%query.Limit != 0 {
		totalPages++
	}
	return PublicPage{
		Properties: certs,
		Total:      total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

// PublicGet returns an approved record by id. Pending and rejected records
// are indistinguishable from missing ones.
func (s *Service) PublicGet(ctx context.Context, id string) (property.Certificate, error) {
	cert, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return property.Certificate{}, err
	}
	if cert.MintingStatus != property.StatusApproved {
		return property.Certificate{}, apperr.NotFound("property not found")
	}
	return cert, nil
}

func validateSubmission(input *SubmissionInput, requireDocument bool) error {
	input.PropertyID = strings.TrimSpace(input.PropertyID)
	input.ReraPermit = strings.TrimSpace(input.ReraPermit)
	input.DeveloperName = strings.TrimSpace(input.DeveloperName)
	input.ProjectName = strings.TrimSpace(input.ProjectName)
	input.Location = strings.TrimSpace(input.Location)
	input.UnitType = strings.TrimSpace(input.UnitType)

	var brokers []string
	for _, b := range input.BrokerCompanies {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	input.BrokerCompanies = brokers

	for name, value := range map[string]string{
		"propertyId":    input.PropertyID,
		"reraPermit":    input.ReraPermit,
		"developerName": input.DeveloperName,
		"projectName":   input.ProjectName,
		"location":      input.Location,
		"unitType":      input.UnitType,
	} {
		if value == "" {
			return apperr.Validation("%s is required", name)
		}
	}

	if input.Image == nil || len(input.Image.Data) == 0 {
		return apperr.Validation("image is required")
	}
	if requireDocument && (input.Document == nil || len(input.Document.Data) == 0) {
		return apperr.Validation("document file is required")
	}
	return nil
}
