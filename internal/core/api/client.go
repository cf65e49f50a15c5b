package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/extgen/internal/codegen"
	"github.com/solatis/extgen/internal/core/auth"
	"github.com/solatis/extgen/internal/types"
)

// Client calls the Converter service and attaches an API key to every call.
type Client struct {
	cc     grpc.ClientConnInterface
	apiKey string
}

// NewClient creates a client over cc.
func NewClient(cc grpc.ClientConnInterface, apiKey string) *Client {
	return &Client{cc: cc, apiKey: apiKey}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.MetadataKey, c.apiKey)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Convert compiles one extension remotely.
func (c *Client) Convert(ctx context.Context, ext *types.Extension, opts ...grpc.CallOption) (*codegen.Snippet, error) {
	extStruct, err := extensionToStruct(ext)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extension: %w", err)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"extension": structpb.NewStructValue(extStruct),
	}}
	out, err := c.invoke(ctx, MethodConvert, req, opts...)
	if err != nil {
		return nil, err
	}
	return structToSnippet(out), nil
}

// BatchResult is one entry of a ConvertBatch response.
type BatchResult struct {
	Snippet *codegen.Snippet
	Err     string
}

// ConvertBatch compiles exts remotely; results follow input order.
func (c *Client) ConvertBatch(ctx context.Context, exts []types.Extension, opts ...grpc.CallOption) ([]BatchResult, error) {
	values := make([]*structpb.Value, len(exts))
	for i := range exts {
		s, err := extensionToStruct(&exts[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode extension #%d: %w", i, err)
		}
		values[i] = structpb.NewStructValue(s)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"extensions": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}

	out, err := c.invoke(ctx, MethodConvertBatch, req, opts...)
	if err != nil {
		return nil, err
	}

	items := out.GetFields()["results"].GetListValue().GetValues()
	results := make([]BatchResult, len(items))
	for i, item := range items {
		s := item.GetStructValue()
		results[i] = BatchResult{
			Snippet: structToSnippet(s),
			Err:     s.GetFields()["error"].GetStringValue(),
		}
	}
	return results, nil
}

// GetSnippet fetches the latest generated snippet for id. The response
// struct also carries run_id and created_at.
func (c *Client) GetSnippet(ctx context.Context, id types.ExtensionID, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"extension_id": structpb.NewNumberValue(float64(id)),
	}}
	return c.invoke(ctx, MethodGetSnippet, req, opts...)
}
