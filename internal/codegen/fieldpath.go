// internal/codegen/fieldpath.go
package codegen

import "strings"

/*
 * Field references in generated code.
 *
 * Data layer fields are always rendered as indexed access on the event
 * data parameter (b['name']), never dot access: names routinely contain
 * dots and dashes that are not valid in identifiers.
 *
 * Namespace prefixes: the platform marks data layer variables with udo.
 * and JavaScript-page variables with js. in its editor. Both only mean
 * "key on the event data object" once compiled, so they are stripped.
 * Which prefixes are stripped depends on the position:
 *   - condition variable: udo.
 *   - action destination: js.
 *   - action source:      udo. then js.
 */

// EventDataParam is the parameter name of the event data object in generated code.
const EventDataParam = "b"

const (
	prefixUDO = "udo."
	prefixJS  = "js."
)

// StripNamespace removes each prefix, in order, at most once.
func StripNamespace(name string, prefixes ...string) string {
	for _, p := range prefixes {
		name = strings.TrimPrefix(name, p)
	}
	return name
}

// FieldRef renders indexed access to a field on the event data object.
func FieldRef(name string) string {
	return EventDataParam + "['" + name + "']"
}

// quote renders a single-quoted JavaScript string literal.
// The value is interpolated unescaped to match deployed snippets.
func quote(value string) string {
	return "'" + value + "'"
}
