// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/broker"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed store.
type Store struct {
	db *sql.DB
}

var _ storage.PropertyStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.BrokerStore = (*Store)(nil)

// New creates a store on top of db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// Properties ------------------------------------------------------------------

const propertyColumns = `id, property_id, rera_permit, developer_name, project_name,
	location, unit_type, broker_companies, description, bedrooms, bathrooms,
	area_sqft, image_cid, image_url, file_cid, file_url, verification_date,
	verification_hash, token_uri, expires_at, minting_status,
	mint_transaction_hash, created_at, updated_at`

func (s *Store) CreateProperty(ctx context.Context, cert property.Certificate) (property.Certificate, error) {
	if cert.ID == "" {
		cert.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	cert.CreatedAt = now
	cert.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (`+propertyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		cert.ID, cert.PropertyID, cert.ReraPermit, cert.DeveloperName,
		cert.ProjectName, cert.Location, cert.UnitType,
		pq.Array(cert.BrokerCompanies), cert.Description, cert.Bedrooms,
		cert.Bathrooms, cert.AreaSqFt, cert.ImageCID, cert.ImageURL,
		cert.FileCID, cert.FileURL, cert.VerificationDate,
		cert.VerificationHash, cert.TokenURI, cert.ExpiresAt,
		string(cert.MintingStatus), cert.MintTransactionHash,
		cert.CreatedAt, cert.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return property.Certificate{}, apperr.Conflict("property ID must be unique")
		}
		return property.Certificate{}, fmt.Errorf("insert property: %w", err)
	}
	return cert, nil
}

func (s *Store) UpdateProperty(ctx context.Context, cert property.Certificate) (property.Certificate, error) {
	cert.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE properties
		SET minting_status = $1, mint_transaction_hash = $2, token_uri = $3,
			image_cid = $4, image_url = $5, file_cid = $6, file_url = $7,
			description = $8, bedrooms = $9, bathrooms = $10, area_sqft = $11,
			updated_at = $12
		WHERE id = $13`,
		string(cert.MintingStatus), cert.MintTransactionHash, cert.TokenURI,
		cert.ImageCID, cert.ImageURL, cert.FileCID, cert.FileURL,
		cert.Description, cert.Bedrooms, cert.Bathrooms, cert.AreaSqFt,
		cert.UpdatedAt, cert.ID)
	if err != nil {
		return property.Certificate{}, fmt.Errorf("update property: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return property.Certificate{}, apperr.NotFound("property not found")
	}
	return s.GetProperty(ctx, cert.ID)
}

func (s *Store) GetProperty(ctx context.Context, id string) (property.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return scanProperty(row)
}

func (s *Store) GetPropertyByPropertyID(ctx context.Context, propertyID string) (property.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE property_id = $1`, propertyID)
	return scanProperty(row)
}

func (s *Store) ListProperties(ctx context.Context, filter storage.ListFilter) ([]property.Certificate, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND minting_status = $%d", len(args))
	}
	if filter.DeveloperName != "" {
		args = append(args, filter.DeveloperName)
		query += fmt.Sprintf(" AND developer_name = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	return collectProperties(rows)
}

func (s *Store) ListApprovedProperties(ctx context.Context, filter storage.PublicFilter) ([]property.Certificate, int, error) {
	where := ` FROM properties WHERE minting_status = $1`
	args := []interface{}{string(property.StatusApproved)}
	for _, f := range []struct {
		column string
		value  string
	}{
		{"property_id", filter.PropertyID},
		{"developer_name", filter.DeveloperName},
		{"project_name", filter.ProjectName},
	} {
		if f.value == "" {
			continue
		}
		args = append(args, "%"+f.value+"%")
		where += fmt.Sprintf(" AND %s ILIKE $%d", f.column, len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count approved properties: %w", err)
	}

	query := `SELECT ` + propertyColumns + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list approved properties: %w", err)
	}
	defer rows.Close()

	certs, err := collectProperties(rows)
	if err != nil {
		return nil, 0, err
	}
	return certs, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (property.Certificate, error) {
	var cert property.Certificate
	var status string
	var brokers pq.StringArray
	err := row.Scan(
		&cert.ID, &cert.PropertyID, &cert.ReraPermit, &cert.DeveloperName,
		&cert.ProjectName, &cert.Location, &cert.UnitType, &brokers,
		&cert.Description, &cert.Bedrooms, &cert.Bathrooms, &cert.AreaSqFt,
		&cert.ImageCID, &cert.ImageURL, &cert.FileCID, &cert.FileURL,
		&cert.VerificationDate, &cert.VerificationHash, &cert.TokenURI,
		&cert.ExpiresAt, &status, &cert.MintTransactionHash,
		&cert.CreatedAt, &cert.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return property.Certificate{}, apperr.NotFound("property not found")
	}
	if err != nil {
		return property.Certificate{}, fmt.Errorf("scan property: %w", err)
	}
	cert.BrokerCompanies = []string(brokers)
	cert.MintingStatus = property.MintingStatus(status)
	return cert, nil
}

func collectProperties(rows *sql.Rows) ([]property.Certificate, error) {
	var certs []property.Certificate
	for rows.Next() {
		cert, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return certs, nil
}

// Users -----------------------------------------------------------------------

const userColumns = `id, name, email, password_hash, company_name, role,
	developer_id, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CompanyName,
		string(u.Role), u.DeveloperID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, apperr.Conflict("email already exists")
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $1, email = lower($2), password_hash = $3,
			company_name = $4, developer_id = $5, updated_at = $6
		WHERE id = $7`,
		u.Name, u.Email, u.PasswordHash, u.CompanyName, u.DeveloperID,
		u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, apperr.Conflict("email already exists")
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, apperr.NotFound("user not found")
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []interface{}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.ExcludeRole != "" {
		args = append(args, string(filter.ExcludeRole))
		query += fmt.Sprintf(" AND role <> $%d", len(args))
	}
	if filter.DeveloperID != "" {
		args = append(args, filter.DeveloperID)
		query += fmt.Sprintf(" AND developer_id = $%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CompanyName,
		&role, &u.DeveloperID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = user.Role(role)
	return u, nil
}

// Brokers ---------------------------------------------------------------------

const brokerColumns = `id, broker_name, broker_email, contact_no, developer_id,
	created_at, updated_at`

func (s *Store) CreateBroker(ctx context.Context, b broker.Broker) (broker.Broker, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brokers (`+brokerColumns+`)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7)`,
		b.ID, b.Name, b.Email, b.ContactNo, b.DeveloperID,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return broker.Broker{}, apperr.Conflict("email already exists")
		}
		return broker.Broker{}, fmt.Errorf("insert broker: %w", err)
	}
	return s.GetBroker(ctx, b.ID)
}

func (s *Store) UpdateBroker(ctx context.Context, b broker.Broker) (broker.Broker, error) {
	b.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE brokers
		SET broker_name = $1, broker_email = lower($2), contact_no = $3,
			updated_at = $4
		WHERE id = $5`,
		b.Name, b.Email, b.ContactNo, b.UpdatedAt, b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return broker.Broker{}, apperr.Conflict("email already exists")
		}
		return broker.Broker{}, fmt.Errorf("update broker: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return broker.Broker{}, apperr.NotFound("broker not found")
	}
	return s.GetBroker(ctx, b.ID)
}

func (s *Store) GetBroker(ctx context.Context, id string) (broker.Broker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+brokerColumns+` FROM brokers WHERE id = $1`, id)
	return scanBroker(row)
}

func (s *Store) GetBrokerByEmail(ctx context.Context, email string) (broker.Broker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+brokerColumns+` FROM brokers WHERE broker_email = lower($1)`, email)
	return scanBroker(row)
}

func (s *Store) ListBrokers(ctx context.Context, developerID string) ([]broker.Broker, error) {
	query := `SELECT ` + brokerColumns + ` FROM brokers`
	var args []interface{}
	if developerID != "" {
		args = append(args, developerID)
		query += " WHERE developer_id = $1"
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list brokers: %w", err)
	}
	defer rows.Close()

	var brokers []broker.Broker
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brokers: %w", err)
	}
	return brokers, nil
}

func (s *Store) DeleteBroker(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM brokers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete broker: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperr.NotFound("broker not found")
	}
	return nil
}

func scanBroker(row rowScanner) (broker.Broker, error) {
	var b broker.Broker
	err := row.Scan(&b.ID, &b.Name, &b.Email, &b.ContactNo, &b.DeveloperID,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return broker.Broker{}, apperr.NotFound("broker not found")
	}
	if err != nil {
		return broker.Broker{}, fmt.Errorf("scan broker: %w", err)
	}
	return b, nil
}
