package model

import "time"

// Role values stored in the members table and in JWT claims.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Member represents an association member record as stored in the
// `members` table.  The json tags are omitted because these structs
// are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key (uuid).
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Role         – MEMBER or ADMIN.
//  IsActive     – whether the membership is active; resigned members
//                 keep their rows but cannot sign in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Member struct {
	ID           string    // members.id
	Email        string    // members.email
	PasswordHash string    // members.password_hash
	Name         string    // members.name
	Role         string    // members.role
	IsActive     bool      // members.is_active
	CreatedAt    time.Time // members.created_at
	UpdatedAt    time.Time // members.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a member and carries metadata for expiry
// and revocation.  The plain token is not stored; only its SHA-256
// hash.
//
// Fields:
//  ID        – primary key identifier.
//  MemberID  – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	MemberID  string     // refresh_tokens.member_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
