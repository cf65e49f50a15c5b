// Package auth provides HMAC-based API key authentication for gRPC services.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// workspaceIDKey is the context key for the authenticated workspace.
const workspaceIDKey = contextKey("workspace_id")

// MetadataKey is the gRPC metadata entry carrying the API key.
const MetadataKey = "x-api-key"

// lastUsedThrottle bounds how often last_used_at is written per key.
const lastUsedThrottle = time.Minute

// Queries defines the database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Secrets are held in memory keyed by secret_id; keys are looked up by hash.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate validates an API key and returns its workspace_id.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row struct {
		APIKeyID    string         `db:"api_key_id"`
		WorkspaceID string         `db:"workspace_id"`
		LastUsedAt  sql.NullString `db:"last_used_at"`
		RevokedAt   sql.NullString `db:"revoked_at"`
	}

	// key_hash is unique, so at most one row matches
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	if a.shouldUpdateLastUsed(row.LastUsedAt) {
		_, _ = a.queries.Exec(ctx, "update-last-used", a.now().Format(time.RFC3339), row.APIKeyID)
	}

	return row.WorkspaceID, nil
}

// shouldUpdateLastUsed throttles last_used_at writes for busy keys.
func (a *Authenticator) shouldUpdateLastUsed(lastUsed sql.NullString) bool {
	if !lastUsed.Valid {
		return true
	}
	t, err := time.Parse(time.RFC3339, lastUsed.String)
	if err != nil {
		return true
	}
	return a.now().Sub(t) > lastUsedThrottle
}

// IssuedKey is a newly created API key. Key is shown once and never stored.
type IssuedKey struct {
	ID          string
	WorkspaceID string
	Name        string
	SecretID    string
	Key         string
}

// IssueKey creates and stores a key for workspaceID signed with secretID.
// An empty secretID selects the only configured secret.
func (a *Authenticator) IssueKey(ctx context.Context, workspaceID, name, secretID string) (*IssuedKey, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}
	if secretID == "" {
		if len(a.secrets) != 1 {
			return nil, fmt.Errorf("secret_id is required when %d secrets are configured (have %v)", len(a.secrets), a.SecretIDs())
		}
		for id := range a.secrets {
			secretID = id
		}
	}
	secret, ok := a.secrets[secretID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, secretID)
	}

	key, err := GenerateAPIKey(secretID)
	if err != nil {
		return nil, err
	}

	issued := &IssuedKey{
		ID:          uuid.Must(uuid.NewV7()).String(),
		WorkspaceID: workspaceID,
		Name:        name,
		SecretID:    secretID,
		Key:         key,
	}
	_, err = a.queries.Exec(ctx, "insert-api-key",
		issued.ID, workspaceID, name, secretID, ComputeHMAC(secret, key), a.now().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to store api key: %w", err)
	}
	return issued, nil
}

// RevokeKey marks a key revoked. Revoking an unknown or already revoked
// key is an error.
func (a *Authenticator) RevokeKey(ctx context.Context, apiKeyID string) error {
	res, err := a.queries.Exec(ctx, "revoke-api-key", a.now().Format(time.RFC3339), apiKeyID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("api key %s not found or already revoked", apiKeyID)
	}
	return nil
}

// SecretIDs returns the configured secret IDs in sorted order.
func (a *Authenticator) SecretIDs() []string {
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Methods listed in skip (full method names) bypass authentication.
func (a *Authenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	public := make(map[string]bool, len(skip))
	for _, m := range skip {
		public[m] = true
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if public[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(MetadataKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		workspaceID, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			return nil, status.Error(errorCode(err), err.Error())
		}

		return handler(WithWorkspaceID(ctx, workspaceID), req)
	}
}

func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return codes.PermissionDenied
	case errors.Is(err, ErrDatabase):
		return codes.Unavailable
	default:
		return codes.Unauthenticated
	}
}

// WithWorkspaceID returns a context carrying workspaceID.
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceIDKey, workspaceID)
}

// WorkspaceIDFromContext extracts the workspace ID from context.
// Returns empty string if not found.
func WorkspaceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(workspaceIDKey).(string); ok {
		return id
	}
	return ""
}
