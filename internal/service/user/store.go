package user

import "context"

// Store persists one User per id.
//
// Implementations must:
//   - return ErrNotFound from Get when no record exists
//   - write a whole record atomically in Upsert
//   - keep the stored CreatedAt when Upsert overwrites an existing record
//   - return records with materialized Preferences
type Store interface {
	Get(ctx context.Context, id string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Upsert(ctx context.Context, u *User) (*User, error)
}
