package storage

import (
	"context"

	"github.com/taimoor511/certiqas-backend/internal/app/domain/broker"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
)

// ListFilter narrows authenticated property listings.
type ListFilter struct {
	Status        property.MintingStatus // empty = all
	DeveloperName string                 // empty = unscoped
}

// PublicFilter narrows the public approved-property listing. String filters
// are case-insensitive substring matches.
type PublicFilter struct {
	PropertyID    string
	DeveloperName string
	ProjectName   string
	Limit         int
	Offset        int
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role        user.Role // empty = all
	ExcludeRole user.Role // empty = none
	DeveloperID string    // empty = unscoped
}

// PropertyStore persists certificate records. Implementations enforce the
// propertyId uniqueness constraint and are the final authority for duplicate
// races.
type PropertyStore interface {
	CreateProperty(ctx context.Context, cert property.Certificate) (property.Certificate, error)
	UpdateProperty(ctx context.Context, cert property.Certificate) (property.Certificate, error)
	GetProperty(ctx context.Context, id string) (property.Certificate, error)
	GetPropertyByPropertyID(ctx context.Context, propertyID string) (property.Certificate, error)
	ListProperties(ctx context.Context, filter ListFilter) ([]property.Certificate, error)
	ListApprovedProperties(ctx context.Context, filter PublicFilter) ([]property.Certificate, int, error)
}

// UserStore persists actor accounts with a unique email constraint.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// BrokerStore persists broker contacts with a unique email constraint.
type BrokerStore interface {
	CreateBroker(ctx context.Context, b broker.Broker) (broker.Broker, error)
	UpdateBroker(ctx context.Context, b broker.Broker) (broker.Broker, error)
	GetBroker(ctx context.Context, id string) (broker.Broker, error)
	GetBrokerByEmail(ctx context.Context, email string) (broker.Broker, error)
	ListBrokers(ctx context.Context, developerID string) ([]broker.Broker, error)
	DeleteBroker(ctx context.Context, id string) error
}
