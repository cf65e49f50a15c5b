package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/extgen/internal/core/db"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("testsecret1234567890abcdefghijklmnop")

func newTestAuthenticator(t *testing.T) (*Authenticator, *db.Queries) {
	t.Helper()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = db.MigrateUp(conn)
	require.NoError(t, err)
	queries, err := db.LoadQueries(conn)
	require.NoError(t, err)

	return NewAuthenticator(map[string][]byte{testSecretID: testSecret}, queries), queries
}

func TestParseAPIKey(t *testing.T) {
	random := strings.Repeat("ab", 32)
	valid := FormatAPIKey(testSecretID, random)
	require.Len(t, valid, 102)

	secretID, randomData, err := ParseAPIKey(valid)
	require.NoError(t, err)
	assert.Equal(t, testSecretID, secretID)
	assert.Equal(t, random, randomData)

	invalid := []string{
		"",
		"tk-v1-" + testSecretID + "-" + random,
		"eg-v2-" + testSecretID + "-" + random,
		"eg-v1-" + testSecretID[:31] + "-" + random,
		"eg-v1-" + testSecretID + "-" + random[:63],
		"eg-v1-" + strings.ToUpper(testSecretID) + "-" + random,
		"eg-v1-" + testSecretID + "-" + random + "-extra",
	}
	for _, key := range invalid {
		_, _, err := ParseAPIKey(key)
		assert.ErrorIs(t, err, ErrInvalidKeyFormat, "key %q", key)
	}
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)
	b, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, _, err = ParseAPIKey(a)
	assert.NoError(t, err)

	_, err = GenerateAPIKey("not-hex")
	assert.Error(t, err)
}

func TestVerifyHMAC(t *testing.T) {
	h := ComputeHMAC(testSecret, "key")
	assert.True(t, VerifyHMAC(h, ComputeHMAC(testSecret, "key")))
	assert.False(t, VerifyHMAC(h, ComputeHMAC(testSecret, "other")))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthenticator(t)

	issued, err := a.IssueKey(ctx, "ws-1", "ci", "")
	require.NoError(t, err)
	assert.Equal(t, testSecretID, issued.SecretID)

	workspace, err := a.Authenticate(ctx, issued.Key)
	require.NoError(t, err)
	assert.Equal(t, "ws-1", workspace)

	forged, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = a.Authenticate(ctx, FormatAPIKey("fedcba9876543210fedcba9876543210", strings.Repeat("0", 64)))
	assert.ErrorIs(t, err, ErrUnknownKey)

	require.NoError(t, a.RevokeKey(ctx, issued.ID))
	_, err = a.Authenticate(ctx, issued.Key)
	assert.ErrorIs(t, err, ErrKeyRevoked)

	assert.Error(t, a.RevokeKey(ctx, issued.ID), "second revoke")
}

func TestIssueKey_SecretSelection(t *testing.T) {
	ctx := context.Background()
	a, queries := newTestAuthenticator(t)
	a2 := NewAuthenticator(map[string][]byte{
		testSecretID:                       testSecret,
		"fedcba9876543210fedcba9876543210": testSecret,
	}, queries)

	_, err := a2.IssueKey(ctx, "ws", "k", "")
	assert.ErrorContains(t, err, "secret_id is required")

	_, err = a.IssueKey(ctx, "ws", "k", "ffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = a.IssueKey(ctx, "", "k", "")
	assert.Error(t, err)

	assert.Equal(t, []string{testSecretID, "fedcba9876543210fedcba9876543210"}, a2.SecretIDs())
}

func TestShouldUpdateLastUsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := &Authenticator{now: func() time.Time { return now }}

	tests := []struct {
		name     string
		lastUsed sql.NullString
		want     bool
	}{
		{"never used", sql.NullString{}, true},
		{"recent", sql.NullString{String: now.Add(-30 * time.Second).Format(time.RFC3339), Valid: true}, false},
		{"stale", sql.NullString{String: now.Add(-2 * time.Minute).Format(time.RFC3339), Valid: true}, true},
		{"unparseable", sql.NullString{String: "yesterday", Valid: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.shouldUpdateLastUsed(tt.lastUsed))
		})
	}
}

// failingQueries simulates an unreachable database.
type failingQueries struct{}

func (failingQueries) Get(context.Context, string, interface{}, ...interface{}) error {
	return errors.New("connection refused")
}

func (failingQueries) Exec(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("connection refused")
}

func TestUnaryInterceptor(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthenticator(t)
	issued, err := a.IssueKey(ctx, "ws-1", "ci", "")
	require.NoError(t, err)

	info := &grpc.UnaryServerInfo{FullMethod: "/extgen.v1.Converter/Convert"}
	var gotWorkspace string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		gotWorkspace = WorkspaceIDFromContext(ctx)
		return "ok", nil
	}
	withKey := func(key string) context.Context {
		return metadata.NewIncomingContext(ctx, metadata.Pairs(MetadataKey, key))
	}

	resp, err := a.UnaryInterceptor()(withKey(issued.Key), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "ws-1", gotWorkspace)

	tests := []struct {
		name string
		ctx  context.Context
		auth *Authenticator
		want codes.Code
	}{
		{"no metadata", ctx, a, codes.Unauthenticated},
		{"no key", metadata.NewIncomingContext(ctx, metadata.MD{}), a, codes.Unauthenticated},
		{"malformed key", withKey("nope"), a, codes.Unauthenticated},
		{"database down", withKey(issued.Key), NewAuthenticator(map[string][]byte{testSecretID: testSecret}, failingQueries{}), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.auth.UnaryInterceptor()(tt.ctx, nil, info, handler)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}

	require.NoError(t, a.RevokeKey(ctx, issued.ID))
	_, err = a.UnaryInterceptor()(withKey(issued.Key), nil, info, handler)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	// Skipped methods need no key.
	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, err = a.UnaryInterceptor(health.FullMethod)(ctx, nil, health, handler)
	assert.NoError(t, err)
}
