// Package me serves the authenticated caller's own user record.
package me

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/janisto/echo-identity/internal/http/view"
	"github.com/janisto/echo-identity/internal/platform/auth"
	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/respond"
	"github.com/janisto/echo-identity/internal/platform/validate"
	usersvc "github.com/janisto/echo-identity/internal/service/user"
)

// Service is the subset of the user service used by self-service routes.
// Every method acts on the identity passed in, never on a caller-named id.
type Service interface {
	GetSelf(ctx context.Context, caller auth.Identity) (*usersvc.User, error)
	UpdateProfile(ctx context.Context, caller auth.Identity, patch usersvc.ProfilePatch) (*usersvc.User, error)
	UpdatePreferences(ctx context.Context, caller auth.Identity, patch usersvc.PreferencesPatch) (*usersvc.User, error)
}

// Register wires self-service routes into g, which must have
// auth.Middleware applied.
func Register(g *echo.Group, svc Service) {
	g.GET("/me", handleGetMe(svc))
	g.PATCH("/me", handleUpdateMe(svc))
	g.PATCH("/me/preferences", handleUpdatePreferences(svc))
}

// handleGetMe godoc
//
//	@Summary		Get current user
//	@Description	Returns the authenticated caller's profile and preferences
//	@Tags			me
//	@Produce		json,application/cbor
//	@Success		200	{object}	view.User
//	@Failure		401	{object}	respond.ProblemDetails
//	@Failure		404	{object}	respond.ProblemDetails
//	@Failure		500	{object}	respond.ProblemDetails
//	@Failure		503	{object}	respond.ProblemDetails
//	@Security		BearerAuth
//	@Router			/me [get]
func handleGetMe(svc Service) echo.HandlerFunc {
	return func(c *echo.Context) error {
		caller, err := auth.IdentityFromEchoContext(c)
		if err != nil {
			return respond.Error401("unauthorized")
		}

		ctx := c.Request().Context()
		u, err := svc.GetSelf(ctx, *caller)
		if err != nil {
			return mapServiceError(ctx, err)
		}
		return respond.Negotiate(c, http.StatusOK, view.FromUser(u))
	}
}

// handleUpdateMe godoc
//
//	@Summary		Update current user profile
//	@Description	Partially updates displayName, avatarUrl and bio. Email, role and status cannot be changed here.
//	@Tags			me
//	@Accept			json
//	@Produce		json,application/cbor
//	@Param			body	body		UpdateProfileInput	true	"Fields to change"
//	@Success		200		{object}	view.User
//	@Failure		400		{object}	respond.ProblemDetails
//	@Failure		401		{object}	respond.ProblemDetails
//	@Failure		404		{object}	respond.ProblemDetails
//	@Failure		422		{object}	respond.ProblemDetails
//	@Failure		500		{object}	respond.ProblemDetails
//	@Security		BearerAuth
//	@Router			/me [patch]
func handleUpdateMe(svc Service) echo.HandlerFunc {
	return func(c *echo.Context) error {
		caller, err := auth.IdentityFromEchoContext(c)
		if err != nil {
			return respond.Error401("unauthorized")
		}

		var input UpdateProfileInput
		if err := c.Bind(&input); err != nil {
			return respond.Error400("invalid request body")
		}

		ctx := c.Request().Context()
		u, err := svc.UpdateProfile(ctx, *caller, input.patch())
		if err != nil {
			return mapServiceError(ctx, err)
		}
		return respond.Negotiate(c, http.StatusOK, view.FromUser(u))
	}
}

// handleUpdatePreferences godoc
//
//	@Summary		Update current user preferences
//	@Description	Merges the given preference fields. A notifications object replaces the stored one as a whole; flags it omits take their defaults.
//	@Tags			me
//	@Accept			json
//	@Produce		json,application/cbor
//	@Param			body	body		UpdatePreferencesInput	true	"Preference fields to change"
//	@Success		200		{object}	view.User
//	@Failure		400		{object}	respond.ProblemDetails
//	@Failure		401		{object}	respond.ProblemDetails
//	@Failure		404		{object}	respond.ProblemDetails
//	@Failure		422		{object}	respond.ProblemDetails
//	@Failure		500		{object}	respond.ProblemDetails
//	@Security		BearerAuth
//	@Router			/me/preferences [patch]
func handleUpdatePreferences(svc Service) echo.HandlerFunc {
	return func(c *echo.Context) error {
		caller, err := auth.IdentityFromEchoContext(c)
		if err != nil {
			return respond.Error401("unauthorized")
		}

		var input UpdatePreferencesInput
		if err := c.Bind(&input); err != nil {
			return respond.Error400("invalid request body")
		}

		ctx := c.Request().Context()
		u, err := svc.UpdatePreferences(ctx, *caller, input.patch())
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
