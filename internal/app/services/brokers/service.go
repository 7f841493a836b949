// Package brokers manages the broker contact book, scoped by developer
// affiliation.
package brokers

import (
	"context"
	"strings"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/broker"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// Input describes a broker create or update.
type Input struct {
	Name      string
	Email     string
	ContactNo string
}

// Service manages broker contacts.
type Service struct {
	brokers storage.BrokerStore
	log     *logger.Logger
}

// New creates the service.
func New(brokers storage.BrokerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("brokers")
	}
	return &Service{brokers: brokers, log: log}
}

// ownerID resolves which developer a broker created by actor belongs to.
// Super admin brokers are unaffiliated.
func ownerID(actor policy.Actor) string {
	switch actor.Role {
	case user.RoleDeveloper:
		return actor.UserID
	case user.RoleAssistant:
		return actor.DeveloperID
	}
	return ""
}

func canSee(actor policy.Actor, b broker.Broker) bool {
	return actor.Role == user.RoleSuperAdmin || b.DeveloperID == ownerID(actor)
}

// Create adds a broker under the actor's developer.
func (s *Service) Create(ctx context.Context, actor policy.Actor, input Input) (broker.Broker, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Email == "" {
		return broker.Broker{}, apperr.Validation("brokerName and brokerEmail are required")
	}

	created, err := s.brokers.CreateBroker(ctx, broker.Broker{
		Name:        input.Name,
		Email:       input.Email,
		ContactNo:   strings.TrimSpace(input.ContactNo),
		DeveloperID: ownerID(actor),
	})
	if err != nil {
		return broker.Broker{}, err
	}
	s.log.WithField("broker_email", created.Email).Info("broker created")
	return created, nil
}

// Get returns a broker within the actor's affiliation.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (broker.Broker, error) {
	b, err := s.brokers.GetBroker(ctx, id)
	if err != nil {
		return broker.Broker{}, err
	}
	if !canSee(actor, b) {
		return broker.Broker{}, apperr.Forbidden("broker belongs to another developer")
	}
	return b, nil
}

// List returns brokers visible to the actor.
func (s *Service) List(ctx context.Context, actor policy.Actor) ([]broker.Broker, error) {
	if actor.Role == user.RoleSuperAdmin {
		return s.brokers.ListBrokers(ctx, "")
	}
	owner := ownerID(actor)
	if owner == "" {
		return nil, apperr.Unauthorized("account has no developer affiliation")
	}
	return s.brokers.ListBrokers(ctx, owner)
}

// Update modifies a broker within the actor's affiliation. Empty fields are
// left untouched.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, input Input) (broker.Broker, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return broker.Broker{}, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		b.Name = name
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		b.Email = email
	}
	if contact := strings.TrimSpace(input.ContactNo); contact != "" {
		b.ContactNo = contact
	}
	return s.brokers.UpdateBroker(ctx, b)
}

// Delete removes a broker within the actor's affiliation.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.brokers.DeleteBroker(ctx, id)
}
