// internal/types/extension.go
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

/*
 * Domain types for SET DATA VALUE extensions.
 *
 * Provides Extension, ConditionMatrix, ConditionGroup, Condition and
 * ActionConfig structures used by internal/codegen for compilation. Field
 * names and json/yaml keys follow the tag-management platform export so
 * exported definitions decode without a translation layer.
 *
 * Key types:
 *   - Extension: named, numbered unit of condition + action logic
 *   - ConditionMatrix: OR of ConditionGroup (empty = always true)
 *   - ConditionGroup: AND of Condition
 *   - ActionConfig: one data mutation (text, code or var)
 *
 * Export quirk: extension ids appear both as numbers and as numeric
 * strings depending on the platform version, so ExtensionID accepts both.
 */

// ExtensionID is the numeric identifier the platform assigns to an extension.
type ExtensionID int

// UnmarshalJSON accepts 42 and "42".
func (id *ExtensionID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("extension id: %w", err)
		}
		n = json.Number(s)
	}
	return id.parse(string(n))
}

// UnmarshalYAML accepts 42 and "42".
func (id *ExtensionID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("extension id: expected scalar at line %d", node.Line)
	}
	return id.parse(node.Value)
}

func (id *ExtensionID) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("extension id %q: %w", s, err)
	}
	*id = ExtensionID(n)
	return nil
}

// Condition is one comparison test against a data layer field.
type Condition struct {
	Variable string `json:"variable" yaml:"variable"` // may carry a udo. prefix
	Operator string `json:"operator" yaml:"operator"` // wire name, parsed by codegen
	Value    string `json:"value" yaml:"value"`
}

// ConditionGroup is an AND group (all conditions must hold).
type ConditionGroup []Condition

// ConditionMatrix is an OR of AND groups. Empty means always true.
type ConditionMatrix []ConditionGroup

// ActionConfig is one SET DATA VALUE mutation.
// SetToText holds the literal for text and the inline code for code.
type ActionConfig struct {
	SetOption string `json:"setoption" yaml:"setoption"`
	Set       string `json:"set" yaml:"set"`
	SetToText string `json:"settotext" yaml:"settotext"`
	SetToVar  string `json:"settovar" yaml:"settovar"`
}

// Configuration wraps the action list the way the platform exports it.
type Configuration struct {
	Configs []ActionConfig `json:"configs" yaml:"configs"`
}

// Extension is the unit of compilation.
type Extension struct {
	Name          string          `json:"name" yaml:"name"`
	ID            ExtensionID     `json:"id" yaml:"id"`
	Conditions    ConditionMatrix `json:"conditions" yaml:"conditions"`
	Configuration Configuration   `json:"configuration" yaml:"configuration"`
}

// String identifies the extension in logs and error messages.
func (e *Extension) String() string {
	return fmt.Sprintf("%q (id %d)", e.Name, e.ID)
}
