// internal/codegen/convert.go
package codegen

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/extgen/internal/types"
)

/*
 * Extension conversion.
 *
 * Converts a types.Extension into a complete, deployable snippet:
 *   1. Render the guard from the condition matrix
 *   2. Render the action block from configuration.configs
 *   3. Splice both into the fixed template
 *
 * Outcomes:
 *   - Snippet{Generated: true}: complete source text
 *   - Snippet{Generated: false, Reason}: refused because of an unsupported
 *     setoption; callers skip and log, nothing is emitted
 *   - error: unsupported operator, an authoring error that must stop the
 *     build; the message names the extension and the operator
 *
 * There is no partial output. Conversion is pure: identical input yields
 * byte-identical source, so the checksum identifies a snippet's content.
 *
 * Template layout is a textual contract with the deployed snippet corpus.
 * Do not reformat: indentation, comment lines and terminators all matter.
 */

// Options tune generated output. The zero value reproduces deployed snippets.
type Options struct {
	// EscapeStartsWith escapes regex metacharacters in starts_with values.
	EscapeStartsWith bool
	// InvocationArgs is placed between the parentheses of the trailing call.
	InvocationArgs string
}

// Snippet is the result of converting one extension.
type Snippet struct {
	ExtensionID types.ExtensionID
	Name        string
	Generated   bool
	Source      string // empty unless Generated
	Checksum    string // hex SHA-256 of Source, empty unless Generated
	Reason      string // why the extension was not generated
}

// Converter turns extensions into snippets. Safe for concurrent use.
type Converter struct {
	opts Options
}

// NewConverter creates a converter with the given options.
func NewConverter(opts Options) *Converter {
	return &Converter{opts: opts}
}

// Convert compiles ext into a snippet.
func (c *Converter) Convert(ext *types.Extension) (*Snippet, error) {
	snippet := &Snippet{
		ExtensionID: ext.ID,
		Name:        ext.Name,
	}

	guard, err := renderMatrix(ext.Conditions, c.opts)
	if err != nil {
		return nil, fmt.Errorf("extension %s: %w", ext, err)
	}

	body, err := RenderActions(ext.Configuration.Configs)
	if err != nil {
		if errors.Is(err, types.ErrUnsupportedSetOption) {
			snippet.Reason = err.Error()
			return snippet, nil
		}
		return nil, fmt.Errorf("extension %s: %w", ext, err)
	}

	snippet.Source = c.assemble(ext, guard, body)
	snippet.Checksum = Checksum(snippet.Source)
	snippet.Generated = true
	return snippet, nil
}

// Convert compiles ext with default options.
func Convert(ext *types.Extension) (*Snippet, error) {
	return NewConverter(Options{}).Convert(ext)
}

func (c *Converter) assemble(ext *types.Extension, guard, body string) string {
	var sb strings.Builder
	sb.Grow(256 + len(guard) + len(body))
	sb.WriteString("/* eslint-disable */\n")
	fmt.Fprintf(&sb, "/* Based on SET DATA VALUE %s %d */\n", commentSafe(ext.Name), ext.ID)
	sb.WriteString("/* global utag, a, b */\n")
	sb.WriteString("(function(a, b) {\n")
	sb.WriteString("    try {\n")
	sb.WriteString("        if (" + guard + ") {\n")
	sb.WriteString(body)
	sb.WriteString("        }\n")
	sb.WriteString("    } catch (e) {\n")
	sb.WriteString("        window.utag.DB(e);\n")
	sb.WriteString("    }\n")
	sb.WriteString("})(" + c.opts.InvocationArgs + ");\n")
	return sb.String()
}

// commentSafe keeps text from closing the enclosing block comment.
func commentSafe(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}

// Checksum returns the hex SHA-256 of source.
func Checksum(source string) string {
	sum := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%x", sum)
}
