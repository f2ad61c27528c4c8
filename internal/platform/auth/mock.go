package auth

import "context"

// MockVerifier is a Verifier for tests. It returns Error when set, otherwise User.
type MockVerifier struct {
	User  *Identity
	Error error
}

func (m *MockVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.User, nil
}

// TestUser returns a fixed identity for tests.
func TestUser() *Identity {
	return &Identity{
		Subject: "test-user-123",
		Email:   "test@example.com",
		Name:    "Test User",
	}
}

var _ Verifier = (*MockVerifier)(nil)
