// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/broker"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
)

// Store is the in-memory store.
type Store struct {
	mu             sync.RWMutex
	nextID         int64
	properties     map[string]property.Certificate
	propertyIDs    map[string]string // propertyId -> record id
	users          map[string]user.User
	usersByEmail   map[string]string
	brokers        map[string]broker.Broker
	brokersByEmail map[string]string
}

var _ storage.PropertyStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.BrokerStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		properties:     make(map[string]property.Certificate),
		propertyIDs:    make(map[string]string),
		users:          make(map[string]user.User),
		usersByEmail:   make(map[string]string),
		brokers:        make(map[string]broker.Broker),
		brokersByEmail: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// PropertyStore implementation ------------------------------------------------

func (s *Store) CreateProperty(_ context.Context, cert property.Certificate) (property.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.propertyIDs[cert.PropertyID]; exists {
		return property.Certificate{}, apperr.Conflict("property ID must be unique")
	}

	if cert.ID == "" {
		cert.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	cert.CreatedAt = now
	cert.UpdatedAt = now
	cert.BrokerCompanies = cloneStrings(cert.BrokerCompanies)

	s.properties[cert.ID] = cert
	s.propertyIDs[cert.PropertyID] = cert.ID
	return cloneCertificate(cert), nil
}

func (s *Store) UpdateProperty(_ context.Context, cert property.Certificate) (property.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.properties[cert.ID]
	if !ok {
		return property.Certificate{}, apperr.NotFound("property not found")
	}

	cert.PropertyID = original.PropertyID
	cert.CreatedAt = original.CreatedAt
	cert.UpdatedAt = time.Now().UTC()
	cert.BrokerCompanies = cloneStrings(cert.BrokerCompanies)

	s.properties[cert.ID] = cert
	return cloneCertificate(cert), nil
}

func (s *Store) GetProperty(_ context.Context, id string) (property.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.properties[id]
	if !ok {
		return property.Certificate{}, apperr.NotFound("property not found")
	}
	return cloneCertificate(cert), nil
}

func (s *Store) GetPropertyByPropertyID(_ context.Context, propertyID string) (property.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.propertyIDs[propertyID]
	if !ok {
		return property.Certificate{}, apperr.NotFound("property not found")
	}
	return cloneCertificate(s.properties[id]), nil
}

func (s *Store) ListProperties(_ context.Context, filter storage.ListFilter) ([]property.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []property.Certificate
	for _, cert := range s.properties {
		if filter.Status != "" && cert.MintingStatus != filter.Status {
			continue
		}
		if filter.DeveloperName != "" && cert.DeveloperName != filter.DeveloperName {
			continue
		}
		result = append(result, cloneCertificate(cert))
	}
	sortNewestFirst(result)
	return result, nil
}

func (s *Store) ListApprovedProperties(_ context.Context, filter storage.PublicFilter) ([]property.Certificate, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []property.Certificate
	for _, cert := range s.properties {
		if cert.MintingStatus != property.StatusApproved {
			continue
		}
		if !containsFold(cert.PropertyID, filter.PropertyID) ||
			!containsFold(cert.DeveloperName, filter.DeveloperName) ||
			!containsFold(cert.ProjectName, filter.ProjectName) {
			continue
		}
		matched = append(matched, cloneCertificate(cert))
	}
	sortNewestFirst(matched)

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return user.User{}, apperr.Conflict("email already exists")
	}

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = email

	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, apperr.NotFound("user not found")
	}

	email := strings.ToLower(u.Email)
	if email != original.Email {
		if _, exists := s.usersByEmail[email]; exists {
			return user.User{}, apperr.Conflict("email already exists")
		}
		delete(s.usersByEmail, original.Email)
		s.usersByEmail[email] = u.ID
	}

	u.Email = email
	u.Role = original.Role
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, apperr.NotFound("user not found")
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context, filter storage.UserFilter) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []user.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ExcludeRole != "" && u.Role == filter.ExcludeRole {
			continue
		}
		if filter.DeveloperID != "" && u.DeveloperID != filter.DeveloperID {
			continue
		}
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	delete(s.users, id)
	delete(s.usersByEmail, u.Email)
	return nil
}

// BrokerStore implementation --------------------------------------------------

func (s *Store) CreateBroker(_ context.Context, b broker.Broker) (broker.Broker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(b.Email)
	if _, exists := s.brokersByEmail[email]; exists {
		return broker.Broker{}, apperr.Conflict("email already exists")
	}

	if b.ID == "" {
		b.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Email = email

	s.brokers[b.ID] = b
	s.brokersByEmail[email] = b.ID
	return b, nil
}

func (s *Store) UpdateBroker(_ context.Context, b broker.Broker) (broker.Broker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.brokers[b.ID]
	if !ok {
		return broker.Broker{}, apperr.NotFound("broker not found")
	}

	email := strings.ToLower(b.Email)
	if email != original.Email {
		if _, exists := s.brokersByEmail[email]; exists {
			return broker.Broker{}, apperr.Conflict("email already exists")
		}
		delete(s.brokersByEmail, original.Email)
		s.brokersByEmail[email] = b.ID
	}

	b.Email = email
	b.DeveloperID = original.DeveloperID
	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = time.Now().UTC()

	s.brokers[b.ID] = b
	return b, nil
}

func (s *Store) GetBroker(_ context.Context, id string) (broker.Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.brokers[id]
	if !ok {
		return broker.Broker{}, apperr.NotFound("broker not found")
	}
	return b, nil
}

func (s *Store) GetBrokerByEmail(_ context.Context, email string) (broker.Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.brokersByEmail[strings.ToLower(email)]
	if !ok {
		return broker.Broker{}, apperr.NotFound("broker not found")
	}
	return s.brokers[id], nil
}

func (s *Store) ListBrokers(_ context.Context, developerID string) ([]broker.Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []broker.Broker
	for _, b := range s.brokers {
		if developerID != "" && b.DeveloperID != developerID {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteBroker(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.brokers[id]
	if !ok {
		return apperr.NotFound("broker not found")
	}
	delete(s.brokers, id)
	delete(s.brokersByEmail, b.Email)
	return nil
}

// Helpers ---------------------------------------------------------------------

func cloneCertificate(cert property.Certificate) property.Certificate {
	cert.BrokerCompanies = cloneStrings(cert.BrokerCompanies)
	return cert
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func containsFold(value, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}

func sortNewestFirst(certs []property.Certificate) {
	sort.Slice(certs, func(i, j int) bool {
		if certs[i].CreatedAt.Equal(certs[j].CreatedAt) {
			return certs[i].ID > certs[j].ID
		}
		return certs[i].CreatedAt.After(certs[j].CreatedAt)
	})
}
