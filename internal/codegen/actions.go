// internal/codegen/actions.go
package codegen

import (
	"fmt"
	"strings"

	"github.com/solatis/extgen/internal/types"
)

/*
 * Action emission.
 *
 * Renders ActionConfig entries into JavaScript statements, one line per
 * action, each indented to sit inside the guard block of the template.
 *
 * Modes:
 *   - text: b['dest'] = 'literal';
 *   - code: try { b['dest'] = <code>; } catch (e) {}
 *           each custom expression is guarded on its own so a throwing
 *           expression leaves sibling mutations intact
 *   - var:  b['dest'] = b['src'];
 *
 * One unrecognized setoption invalidates the whole action list: a
 * partially applied tracking snippet is worse than none.
 */

const actionIndent = "            "

// SetOption identifies how an action computes its value.
type SetOption int

const (
	SetUnspecified SetOption = iota
	SetText
	SetCode
	SetVar
)

// String returns the wire name of the option.
func (o SetOption) String() string {
	switch o {
	case SetText:
		return "text"
	case SetCode:
		return "code"
	case SetVar:
		return "var"
	default:
		return fmt.Sprintf("SetOption(%d)", int(o))
	}
}

// ParseSetOption converts a wire name to a SetOption.
func ParseSetOption(name string) (SetOption, error) {
	switch name {
	case "text":
		return SetText, nil
	case "code":
		return SetCode, nil
	case "var":
		return SetVar, nil
	default:
		return SetUnspecified, &UnsupportedSetOptionError{SetOption: name}
	}
}

// UnsupportedSetOptionError reports a setoption other than text, code or var.
type UnsupportedSetOptionError struct {
	SetOption string
}

func (e *UnsupportedSetOptionError) Error() string {
	return fmt.Sprintf("unsupported setoption %q", e.SetOption)
}

// Is matches types.ErrUnsupportedSetOption.
func (e *UnsupportedSetOptionError) Is(target error) bool {
	return target == types.ErrUnsupportedSetOption
}

// RenderActions renders the statement block for configs in input order.
// Every line is indented and newline-terminated; an empty list renders "".
func RenderActions(configs []types.ActionConfig) (string, error) {
	var sb strings.Builder
	for _, cfg := range configs {
		stmt, err := renderAction(cfg)
		if err != nil {
			return "", err
		}
		sb.WriteString(actionIndent)
		sb.WriteString(stmt)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// renderAction renders one statement without indentation.
func renderAction(cfg types.ActionConfig) (string, error) {
	opt, err := ParseSetOption(cfg.SetOption)
	if err != nil {
		return "", err
	}

	dest := FieldRef(StripNamespace(cfg.Set, prefixJS))

	switch opt {
	case SetText:
		return dest + " = " + quote(cfg.SetToText) + ";", nil
	case SetCode:
		return "try { " + dest + " = " + terminate(cfg.SetToText) + " } catch (e) {}", nil
	case SetVar:
		src := FieldRef(StripNamespace(cfg.SetToVar, prefixUDO, prefixJS))
		return dest + " = " + src + ";", nil
	default:
		return "", &UnsupportedSetOptionError{SetOption: cfg.SetOption}
	}
}

// terminate drops trailing whitespace and appends ';' unless already present.
func terminate(code string) string {
	code = strings.TrimRight(code, " \t\r\n")
	if strings.HasSuffix(code, ";") {
		return code
	}
	return code + ";"
}
