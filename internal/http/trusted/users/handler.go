// Package users serves user records to trusted internal callers. Routes here
// accept arbitrary user ids and must only be mounted behind auth.TrustedCaller.
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/janisto/echo-identity/internal/http/view"
	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/respond"
	"github.com/janisto/echo-identity/internal/platform/validate"
	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

// Service is the subset of the user service used by trusted routes.
type Service interface {
	SyncUser(ctx context.Context, params usersvc.SyncParams) (*usersvc.User, error)
	GetByID(ctx context.Context, id string) (*usersvc.User, error)
}

// Register wires trusted user routes into g.
func Register(g *echo.Group, svc Service) {
	g.POST("/users/sync", handleSync(svc))
	g.GET("/users/:userId", handleGet(svc))
}

// handleSync godoc
//
//	@Summary		Sync user from login
//	@Description	Creates the user on first login or overwrites email and displayName on later ones. Internal callers only.
//	@Tags			internal
//	@Accept			json
//	@Produce		json,application/cbor
//	@Param			body	body		SyncInput	true	"Identity provider claims"
//	@Success		200		{object}	view.User
//	@Failure		400		{object}	respond.ProblemDetails
//	@Failure		403		{object}	respond.ProblemDetails
//	@Failure		422		{object}	respond.ProblemDetails
//	@Failure		500		{object}	respond.ProblemDetails
//	@Security		InternalApiKey
//	@Router			/internal/v1/users/sync [post]
func handleSync(svc Service) echo.HandlerFunc {
	return func(c *echo.Context) error {
		var input SyncInput
		if err := c.Bind(&input); err != nil {
			return respond.Error400("invalid request body")
		}

		ctx := c.Request().Context()
		u, err := svc.SyncUser(ctx, input.params())
		if err != nil {
			return mapServiceError(ctx, err)
		}
		return respond.Negotiate(c, http.StatusOK, view.FromUser(u))
	}
}

// handleGet godoc
//
//	@Summary		Get user by id
//	@Description	Returns any user by id. Internal callers only.
//	@Tags			internal
//	@Produce		json,application/cbor
//	@Param			userId	path		string	true	"User ID"
//	@Success		200		{object}	view.User
//	@Failure		403		{object}	respond.ProblemDetails
//	@Failure		404		{object}	respond.ProblemDetails
//	@Failure		422		{object}	respond.ProblemDetails
//	@Failure		500		{object}	respond.ProblemDetails
//	@Security		InternalApiKey
//	@Router			/internal/v1/users/{userId} [get]
func handleGet(svc Service) echo.HandlerFunc {
	return func(c *echo.Context) error {
		var input UserPathInput
		if err := c.Bind(&input); err != nil {
			return respond.Error400("invalid request")
		}
		if err := c.Validate(&input); err != nil {
			return err
		}

		ctx := c.Request().Context()
		u, err := svc.GetByID(ctx, input.UserID)
		if err != nil {
			return mapServiceError(ctx, err)
		}
		return respond.Negotiate(c, http.StatusOK, view.FromUser(u))
	}
}

func mapServiceError(ctx context.Context, err error) error {
	var ve *validate.ValidationError
	switch {
	case errors.Is(err, usersvc.ErrNotFound):
		return respond.Error404("user not found")
	case errors.As(err, &ve):
		return ve
	default:
		applog.LogError(ctx, "unexpected service error", err)
		return respond.Error500("internal error")
	}
}
