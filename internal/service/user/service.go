package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/janisto/echo-identity/internal/platform/auth"
	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/metrics"
	"github.com/janisto/echo-identity/internal/platform/validate"
)

const tracerName = "github.com/janisto/echo-identity/internal/service/user"

// Validator checks input structs and returns *validate.ValidationError on failure.
type Validator interface {
	Validate(i any) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithValidator overrides the input validator.
func WithValidator(v Validator) Option {
	return func(s *Service) { s.validator = v }
}

// Service reconciles identity provider logins and self-service edits into stored users.
//
// Self-service operations take an auth.Identity and always act on its Subject;
// they have no parameter through which a caller could name another record.
// SyncUser and GetByID accept arbitrary ids and belong behind the trusted boundary.
type Service struct {
	store     Store
	validator Validator
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		validator: validate.New(),
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncUser creates or updates the user identified by params.ID from login claims.
// Existing users get email and display name overwritten; nothing else changes.
// It is the only operation that creates users or changes email.
func (s *Service) SyncUser(ctx context.Context, params SyncParams) (u *User, err error) {
	ctx, done := s.begin(ctx, "sync", params.ID)
	defer func() { done(err) }()

	params.ID = strings.TrimSpace(params.ID)
	params.Email = strings.TrimSpace(params.Email)
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, params.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := s.now()
	result := "updated"
	var next *User
	if existing != nil {
		next = existing.clone()
		next.Email = params.Email
		next.DisplayName = params.DisplayName
		next.UpdatedAt = laterOf(now, existing.UpdatedAt)
	} else {
		result = "created"
		next = &User{
			ID:          params.ID,
			Email:       params.Email,
			DisplayName: params.DisplayName,
			Role:        RoleUser,
			Status:      StatusActive,
			Preferences: DefaultPreferences(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	saved, err := s.store.Upsert(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	applog.LogAuditEvent(ctx, "user.sync", saved.ID, "user", saved.ID, result, nil)
	return saved, nil
}

// GetByID returns the user with the given id or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (u *User, err error) {
	ctx, done := s.begin(ctx, "get", id)
	defer func() { done(err) }()

	return s.load(ctx, id)
}

// GetSelf returns the caller's own user.
func (s *Service) GetSelf(ctx context.Context, caller auth.Identity) (*User, error) {
	return s.GetByID(ctx, caller.Subject)
}

// UpdateProfile applies the non-nil fields of patch to the caller's own user.
func (s *Service) UpdateProfile(ctx context.Context, caller auth.Identity, patch ProfilePatch) (u *User, err error) {
	ctx, done := s.begin(ctx, "update_profile", caller.Subject)
	defer func() { done(err) }()

	if err := s.validator.Validate(patch); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, caller.Subject)
	if err != nil {
		return nil, err
	}

	next := current.clone()
	if patch.DisplayName != nil {
		next.DisplayName = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		v := *patch.AvatarURL
		next.AvatarURL = &v
	}
	if patch.Bio != nil {
		v := *patch.Bio
		next.Bio = &v
	}
	next.UpdatedAt = laterOf(s.now(), current.UpdatedAt)

	saved, err := s.store.Upsert(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	applog.LogAuditEvent(ctx, "user.update_profile", caller.Subject, "user", saved.ID, "success",
		map[string]any{"fields": patchedProfileFields(patch)})
	return saved, nil
}

// UpdatePreferences merges patch into the caller's own preferences.
func (s *Service) UpdatePreferences(
	ctx context.Context,
	caller auth.Identity,
	patch PreferencesPatch,
) (u *User, err error) {
	ctx, done := s.begin(ctx, "update_preferences", caller.Subject)
	defer func() { done(err) }()

	if err := s.validator.Validate(patch); err != nil {
		return nil, err
	}
	if patch.Locale != nil {
		locale := validate.CanonicalLocale(*patch.Locale)
		patch.Locale = &locale
	}

	current, err := s.load(ctx, caller.Subject)
	if err != nil {
		return nil, err
	}

	next := current.clone()
	next.Preferences = MergePreferences(current.Preferences, patch)
	next.UpdatedAt = laterOf(s.now(), current.UpdatedAt)

	saved, err := s.store.Upsert(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	applog.LogAuditEvent(ctx, "user.update_preferences", caller.Subject, "user", saved.ID, "success", nil)
	return saved, nil
}

func (s *Service) load(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	u, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.Preferences = u.Preferences.Materialize()
	return u, nil
}

// begin starts a span and returns a func that ends it and records metrics.
func (s *Service) begin(ctx context.Context, op, userID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "user."+op, trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	return ctx, func(err error) {
		result := categorizeError(err)
		if err != nil && result == "internal_error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, "internal error")
		}
		span.SetAttributes(attribute.String("user.result", result))
		span.End()
		metrics.ObserveUserOperation(op, result, time.Since(start))
	}
}

// categorizeError returns a safe category string for metrics and tracing.
func categorizeError(err error) string {
	var ve *validate.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &ve):
		return "invalid"
	default:
		return "internal_error"
	}
}

func patchedProfileFields(p ProfilePatch) []string {
	var fields []string
	if p.DisplayName != nil {
		fields = append(fields, "displayName")
	}
	if p.AvatarURL != nil {
		fields = append(fields, "avatarUrl")
	}
	if p.Bio != nil {
		fields = append(fields, "bio")
	}
	return fields
}

// laterOf keeps UpdatedAt from moving backwards when clocks disagree.
func laterOf(now, previous time.Time) time.Time {
	if now.Before(previous) {
		return previous
	}
	return now
}
