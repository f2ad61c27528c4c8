package validate

import (
	"errors"
	"strings"
	"testing"
)

type syncInput struct {
	ID          string `json:"id"          validate:"required"`
	Email       string `json:"email"       validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=100"`
}

type profileInput struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=100"`
	Bio         *string `json:"bio,omitempty"         validate:"omitempty,max=5000"`
}

type preferencesInput struct {
	Theme  *string `json:"theme,omitempty"  validate:"omitempty,oneof=LIGHT DARK SYSTEM"`
	Locale *string `json:"locale,omitempty" validate:"omitempty,bcp47"`
}

type pathInput struct {
	UserID string `param:"userId" validate:"required"`
}

func ptr[T any](v T) *T { return &v }

func validationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Message != "validation failed" {
		t.Fatalf("expected 'validation failed', got %q", ve.Message)
	}
	return ve
}

func TestValidate_ValidInput(t *testing.T) {
	v := New()
	input := syncInput{ID: "u1", Email: "alice@example.com", DisplayName: "A"}
	if err := v.Validate(input); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	ve := validationError(t, New().Validate(syncInput{}))
	if len(ve.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d", len(ve.Fields))
	}

	fieldMap := make(map[string]FieldError)
	for _, f := range ve.Fields {
		fieldMap[f.Field] = f
	}
	assertField(t, fieldMap, "id", "id is required")
	assertField(t, fieldMap, "email", "email is required")
	assertField(t, fieldMap, "displayName", "displayName is required")
}

func TestValidate_InvalidEmail(t *testing.T) {
	input := syncInput{ID: "u1", Email: "not-an-email", DisplayName: "Alice"}
	ve := validationError(t, New().Validate(input))
	if len(ve.Fields) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(ve.Fields))
	}
	assertField(t, map[string]FieldError{ve.Fields[0].Field: ve.Fields[0]},
		"email", "email must be a valid email address")
	if ve.Fields[0].Value != "not-an-email" {
		t.Fatalf("expected rejected value to be reported, got %q", ve.Fields[0].Value)
	}
}

func TestValidate_PointerLengthBounds(t *testing.T) {
	v := New()
	if err := v.Validate(profileInput{}); err != nil {
		t.Fatalf("absent optional fields should pass, got %v", err)
	}

	ve := validationError(t, v.Validate(profileInput{DisplayName: ptr("")}))
	if ve.Fields[0].Message != "displayName must be at least 1" {
		t.Fatalf("unexpected message: %s", ve.Fields[0].Message)
	}

	ve = validationError(t, v.Validate(profileInput{Bio: ptr(strings.Repeat("x", 5001))}))
	if ve.Fields[0].Message != "bio must be at most 5000" {
		t.Fatalf("unexpected message: %s", ve.Fields[0].Message)
	}
}

func TestValidate_Oneof(t *testing.T) {
	v := New()
	if err := v.Validate(preferencesInput{Theme: ptr("DARK")}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ve := validationError(t, v.Validate(preferencesInput{Theme: ptr("dark")}))
	if ve.Fields[0].Field != "theme" {
		t.Fatalf("expected field 'theme', got %q", ve.Fields[0].Field)
	}
	if ve.Fields[0].Message != "theme must be one of: LIGHT DARK SYSTEM" {
		t.Fatalf("unexpected message: %s", ve.Fields[0].Message)
	}
}

func TestValidate_BCP47(t *testing.T) {
	tests := []struct {
		locale  string
		wantErr bool
	}{
		{"en-US", false},
		{"fi", false},
		{"pt-BR", false},
		{"zh-Hant-TW", false},
		{"not a locale!", true},
		{"e", true},
	}
	v := New()
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			err := v.Validate(preferencesInput{Locale: ptr(tt.locale)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("locale %q: err=%v, wantErr=%v", tt.locale, err, tt.wantErr)
			}
			if tt.wantErr {
				ve := validationError(t, err)
				if ve.Fields[0].Message != "locale must be a valid BCP 47 language tag" {
					t.Fatalf("unexpected message: %s", ve.Fields[0].Message)
				}
			}
		})
	}
}

func TestCanonicalLocale(t *testing.T) {
	tests := map[string]string{
		"en-us":    "en-US",
		"EN-GB":    "en-GB",
		"fi":       "fi",
		"garbage!": "garbage!",
	}
	for in, want := range tests {
		if got := CanonicalLocale(in); got != want {
			t.Fatalf("CanonicalLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate_ParamTagNames(t *testing.T) {
	ve := validationError(t, New().Validate(pathInput{}))
	if ve.Fields[0].Field != "userId" {
		t.Fatalf("expected param tag name 'userId', got %q", ve.Fields[0].Field)
	}
}

func TestValidationError_ErrorMethod(t *testing.T) {
	ve := &ValidationError{Message: "validation failed"}
	if ve.Error() != "validation failed" {
		t.Fatalf("expected 'validation failed', got %q", ve.Error())
	}
}

func assertField(t *testing.T, fields map[string]FieldError, name, expectedMsg string) {
	t.Helper()
	fe, ok := fields[name]
	if !ok {
		t.Fatalf("expected field error for %q", name)
	}
	if fe.Message != expectedMsg {
		t.Fatalf("field %q: expected message %q, got %q", name, expectedMsg, fe.Message)
	}
}
