package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/extgen/internal/codegen"
	"github.com/solatis/extgen/internal/core/catalog"
	"github.com/solatis/extgen/internal/types"
)

// Structs travel as JSON so the extension decoders in types apply unchanged.

func structToExtension(s *structpb.Struct) (*types.Extension, error) {
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, err
	}
	var ext types.Extension
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("invalid extension: %w", err)
	}
	if ext.Name == "" && ext.ID == 0 {
		return nil, types.ErrInvalidExtension
	}
	return &ext, nil
}

func extensionToStruct(ext *types.Extension) (*structpb.Struct, error) {
	data, err := json.Marshal(ext)
	if err != nil {
		return nil, err
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func snippetFields(s *codegen.Snippet) map[string]interface{} {
	return map[string]interface{}{
		"extension_id": int64(s.ExtensionID),
		"name":         s.Name,
		"generated":    s.Generated,
		"source":       s.Source,
		"checksum":     s.Checksum,
		"reason":       s.Reason,
	}
}

func snippetToStruct(s *codegen.Snippet) (*structpb.Struct, error) {
	return structpb.NewStruct(snippetFields(s))
}

func recordToStruct(r *catalog.Record) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"extension_id": int64(r.ExtensionID),
		"name":         r.Name,
		"generated":    r.Status == types.StatusGenerated,
		"source":       r.Source,
		"checksum":     r.Checksum,
		"reason":       r.Reason,
		"run_id":       string(r.RunID),
		"created_at":   r.CreatedAt,
	})
}

// structToSnippet decodes a Convert response.
func structToSnippet(s *structpb.Struct) *codegen.Snippet {
	f := s.GetFields()
	return &codegen.Snippet{
		ExtensionID: types.ExtensionID(f["extension_id"].GetNumberValue()),
		Name:        f["name"].GetStringValue(),
		Generated:   f["generated"].GetBoolValue(),
		Source:      f["source"].GetStringValue(),
		Checksum:    f["checksum"].GetStringValue(),
		Reason:      f["reason"].GetStringValue(),
	}
}
