package users

import usersvc "github.com/janisto/echo-identity/internal/service/user"

// SyncInput for POST /users/sync. Claims come from the identity provider
// login the caller has already verified.
type SyncInput struct {
	ID          string `json:"id"          example:"f3b2c1d0-7a6e-4b8f-9c1d-2e3f4a5b6c7d"`
	Email       string `json:"email"       example:"alice@example.com"`
	DisplayName string `json:"displayName" example:"Alice"`
}

func (in SyncInput) params() usersvc.SyncParams {
	return usersvc.SyncParams{
		ID:          in.ID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
	}
}

// UserPathInput binds the :userId path parameter.
type UserPathInput struct {
	UserID string `param:"userId" validate:"required,max=255"`
}
