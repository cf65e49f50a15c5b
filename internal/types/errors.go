package types

import "errors"

// Sentinel errors for extgen operations.
var (
	// ErrUnsupportedOperator indicates a condition operator outside the supported set.
	// Authoring error: compilation of the whole extension aborts.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrUnsupportedSetOption indicates an action setoption other than text, code or var.
	// The extension is refused (not generated) rather than failing the caller.
	ErrUnsupportedSetOption = errors.New("unsupported setoption")

	// ErrNoExtensions indicates an export file contained no extensions.
	ErrNoExtensions = errors.New("no extensions found")

	// ErrInvalidExtension indicates an extension with neither name nor id.
	ErrInvalidExtension = errors.New("extension has no name and no id")

	// ErrDuplicateExtension indicates two extensions in one batch share an output file.
	ErrDuplicateExtension = errors.New("duplicate extension")

	// ErrSnippetNotFound indicates the catalog holds no snippet for an extension.
	ErrSnippetNotFound = errors.New("snippet not found")
)
