package postgres

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

var propertyRows = []string{
	"id", "property_id", "rera_permit", "developer_name", "project_name",
	"location", "unit_type", "broker_companies", "description", "bedrooms",
	"bathrooms", "area_sqft", "image_cid", "image_url", "file_cid", "file_url",
	"verification_date", "verification_hash", "token_uri", "expires_at",
	"minting_status", "mint_transaction_hash", "created_at", "updated_at",
}

func samplePropertyRow(id, propertyID, status string) []driverValue {
	now := time.Now().UTC()
	return []driverValue{
		id, propertyID, "RERA-12345", "Emaar Properties", "Marina Vista",
		"Dubai Marina", "2BR", `{"Alpha Realty","Beta Homes"}`,
		"Sea view", "2", "2", "1200", "QmImg", "https://gw/ipfs/QmImg",
		"QmFile", "https://gw/ipfs/QmFile", int64(1700000000), "0xhash",
		"https://gw/ipfs/QmMeta", int64(0), status, "", now, now,
	}
}

type driverValue = driver.Value

func TestCreatePropertyUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO properties").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "properties_property_id_key"})

	_, err := store.CreateProperty(context.Background(), property.Certificate{
		PropertyID:    "PROP-001",
		MintingStatus: property.StatusPending,
	})
	assert.True(t, apperr.IsConflict(err), "expected conflict, got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPropertyNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(propertyRows))

	_, err := store.GetProperty(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err), "expected not found, got %v", err)
}

func TestGetPropertyByPropertyID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM properties WHERE property_id").
		WithArgs("PROP-001").
		WillReturnRows(sqlmock.NewRows(propertyRows).
			AddRow(samplePropertyRow("rec-1", "PROP-001", "approved")...))

	cert, err := store.GetPropertyByPropertyID(context.Background(), "PROP-001")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", cert.ID)
	assert.Equal(t, property.StatusApproved, cert.MintingStatus)
	assert.Equal(t, []string{"Alpha Realty", "Beta Homes"}, cert.BrokerCompanies)
}

func TestListApprovedPropertiesPagination(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM properties WHERE minting_status").
		WithArgs("approved", "%Emaar%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE minting_status (.+) ILIKE (.+) LIMIT (.+) OFFSET").
		WithArgs("approved", "%Emaar%", 2, 2).
		WillReturnRows(sqlmock.NewRows(propertyRows).
			AddRow(samplePropertyRow("rec-3", "PROP-003", "approved")...).
			AddRow(samplePropertyRow("rec-4", "PROP-004", "approved")...))

	certs, total, err := store.ListApprovedProperties(context.Background(), storage.PublicFilter{
		DeveloperName: "Emaar",
		Limit:         2,
		Offset:        2,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, certs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePropertyNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE properties").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateProperty(context.Background(), property.Certificate{ID: "missing"})
	assert.True(t, apperr.IsNotFound(err), "expected not found, got %v", err)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := store.CreateUser(context.Background(), user.User{
		Email: "dev@example.com",
		Role:  user.RoleDeveloper,
	})
	assert.True(t, apperr.IsConflict(err), "expected conflict, got %v", err)
}

func TestDeleteUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM users WHERE id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteUser(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err), "expected not found, got %v", err)
}

func TestListUsersFilters(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE 1=1 AND role <>").
		WithArgs("SuperAdmin").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "password_hash", "company_name", "role",
			"developer_id", "created_at", "updated_at",
		}).AddRow("u1", "Dev One", "dev@example.com", "hash", "Emaar Properties",
			"Developer", "", now, now))

	users, err := store.ListUsers(context.Background(), storage.UserFilter{
		ExcludeRole: user.RoleSuperAdmin,
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.RoleDeveloper, users[0].Role)
}
