package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/viksund/membership/internal/model"
	"github.com/viksund/membership/internal/utils"
)

// MemberRepo provides data access to the members table.
type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

// Create inserts a member and returns its generated ID.  Passwords
// are bcrypt-hashed with the given cost before storage.
func (r *MemberRepo) Create(ctx context.Context, email, password, name, role string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO members (id, email, password_hash, name, role) VALUES (?,?,?,?,?)",
		id, email, hash, name, role)
	if err != nil {
		// 1062 = MySQL duplicate key on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

const memberColumns = `id, email, password_hash, name, role, is_active, created_at, updated_at`

func scanMember(row rowScanner) (*model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &m.Role,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail returns a member by email or ErrMemberNotFound.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE email = ? LIMIT 1`, email)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	return m, err
}

// GetByID returns a member by ID or ErrMemberNotFound.
func (r *MemberRepo) GetByID(ctx context.Context, id string) (*model.Member, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ? LIMIT 1`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	return m, err
}
