// Package api provides the gRPC Converter service.
package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/extgen/internal/codegen"
	"github.com/solatis/extgen/internal/core/auth"
	"github.com/solatis/extgen/internal/core/catalog"
	"github.com/solatis/extgen/internal/core/config"
	"github.com/solatis/extgen/internal/types"
)

// SnippetStore is the catalog lookup GetSnippet needs.
type SnippetStore interface {
	LatestSnippet(ctx context.Context, workspaceID string, id types.ExtensionID) (*catalog.Record, error)
}

// ConverterService implements ConverterServer.
// Thin layer over codegen and the catalog.
type ConverterService struct {
	conv   *codegen.Converter
	store  SnippetStore
	cfg    config.ServerConfig
	logger *zap.Logger
}

// NewConverterService creates the service. store may be nil, in which case
// GetSnippet reports UNAVAILABLE.
func NewConverterService(conv *codegen.Converter, store SnippetStore, cfg config.ServerConfig, logger *zap.Logger) (*ConverterService, error) {
	if conv == nil {
		return nil, fmt.Errorf("conv cannot be nil")
	}
	if cfg.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("max batch size must be positive, got %d", cfg.MaxBatchSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConverterService{conv: conv, store: store, cfg: cfg, logger: logger}, nil
}

// Convert compiles the request's "extension" object.
// Refusals are a successful response with generated=false.
func (s *ConverterService) Convert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	extValue := req.GetFields()["extension"].GetStructValue()
	if extValue == nil {
		return nil, status.Error(codes.InvalidArgument, "extension is required")
	}
	ext, err := structToExtension(extValue)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snippet, err := s.conv.Convert(ext)
	if err != nil {
		s.logger.Info("conversion rejected",
			zap.String("workspace_id", auth.WorkspaceIDFromContext(ctx)),
			zap.Int("extension_id", int(ext.ID)),
			zap.Error(err),
		)
		return nil, toStatus(err)
	}
	return snippetToStruct(snippet)
}

// ConvertBatch compiles the request's "extensions" list. Each result
// carries its own outcome; an authoring error fills that result's "error"
// field instead of failing the batch.
func (s *ConverterService) ConvertBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items := req.GetFields()["extensions"].GetListValue().GetValues()
	if len(items) == 0 {
		return nil, status.Error(codes.InvalidArgument, "extensions is required")
	}
	// Reject oversized batches before doing any work
	if len(items) > s.cfg.MaxBatchSize {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("batch size %d exceeds maximum of %d extensions", len(items), s.cfg.MaxBatchSize))
	}

	results := make([]interface{}, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, toStatus(err)
		}
		results[i] = s.convertItem(i, item)
	}

	return structpb.NewStruct(map[string]interface{}{"results": results})
}

func (s *ConverterService) convertItem(i int, item *structpb.Value) map[string]interface{} {
	extValue := item.GetStructValue()
	if extValue == nil {
		return map[string]interface{}{"error": fmt.Sprintf("extensions[%d] is not an object", i)}
	}
	ext, err := structToExtension(extValue)
	if err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("extensions[%d]: %v", i, err)}
	}
	snippet, err := s.conv.Convert(ext)
	if err != nil {
		return map[string]interface{}{
			"extension_id": int64(ext.ID),
			"name":         ext.Name,
			"generated":    false,
			"error":        err.Error(),
		}
	}
	return snippetFields(snippet)
}

// GetSnippet returns the latest released snippet for "extension_id" in the
// caller's workspace.
func (s *ConverterService) GetSnippet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unavailable, "snippet catalog not configured")
	}
	idValue, ok := req.GetFields()["extension_id"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "extension_id is required")
	}
	id, err := extensionIDFromValue(idValue)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.store.LatestSnippet(ctx, auth.WorkspaceIDFromContext(ctx), id)
	if err != nil {
		return nil, toStatus(err)
	}
	return recordToStruct(rec)
}

// extensionIDFromValue accepts a number or numeric string, like the exports.
func extensionIDFromValue(v *structpb.Value) (types.ExtensionID, error) {
	var id types.ExtensionID
	data, err := v.MarshalJSON()
	if err != nil {
		return 0, err
	}
	if err := id.UnmarshalJSON(data); err != nil {
		return 0, fmt.Errorf("invalid extension_id: %w", err)
	}
	return id, nil
}
