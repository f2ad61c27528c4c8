package testutil

import (
	"context"
	"net"
	"os"
	"testing"
)

// RequireEmulator skips the test if the Firebase Emulator is not running.
// It checks the FIRESTORE_EMULATOR_HOST environment variable and verifies
// connectivity to the emulator.
func RequireEmulator(t *testing.T) {
	t.Helper()

	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping emulator test")
	}

	var d net.Dialer
	conn, err := d.DialContext(context.Background(), "tcp", host)
	if err != nil {
		t.Skipf("Firestore emulator not reachable at %s: %v", host, err)
	}
	_ = conn.Close()
}

// EmulatorProjectID returns the project ID used for emulator tests.
const EmulatorProjectID = "demo-test-project"

// RequirePostgres skips the test unless DATABASE_URL points at a reachable
// PostgreSQL server, and returns the URL.
func RequirePostgres(t *testing.T) string {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping postgres test")
	}
	return url
}

// RequireRedis skips the test unless REDIS_ADDR is set and the address
// accepts TCP connections, and returns the address.
func RequireRedis(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis test")
	}
	var d net.Dialer
	conn, err := d.DialContext(context.Background(), "tcp", addr)
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	_ = conn.Close()
	return addr
}
