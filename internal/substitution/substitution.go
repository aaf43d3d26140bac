// Package substitution expands "{name}" placeholders in URL, header, and
// body templates against a per-case state map.
package substitution

import (
	"fmt"
	"strings"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

// UnboundVariableError is returned when a template references a state key
// that has not been set.
type UnboundVariableError struct {
	Key string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("substitution: unbound variable %q", e.Key)
}

// Expand replaces every "{name}" marker in template with state[name].
// Substitution is single-pass: replacement text is never re-scanned for
// further markers. Returns UnboundVariableError on the first missing key,
// scanning left to right.
func Expand(template string, state model.State) (string, error) {
	var b strings.Builder

	i := 0
	for i < len(template) {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}

		open += i

		b.WriteString(template[i:open])

		closeIdx := strings.IndexByte(template[open:], '}')
		if closeIdx < 0 {
			// No matching close brace: treat the rest as literal text.
			b.WriteString(template[open:])
			break
		}

		closeIdx += open

		key := template[open+1 : closeIdx]

		val, ok := state[key]
		if !ok {
			return "", &UnboundVariableError{Key: key}
		}

		b.WriteString(val)

		i = closeIdx + 1
	}

	return b.String(), nil
}

// ExpandBestEffort is Expand's degraded mode, used once a case has already
// recorded an UnboundVariableError failure: unresolved markers are left
// verbatim so the remaining requests in the case still execute
// (spec.md §7: "subsequent requests in the case still execute with
// best-effort substitution").
func ExpandBestEffort(template string, state model.State) string {
	var b strings.Builder

	i := 0
	for i < len(template) {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}

		open += i

		b.WriteString(template[i:open])

		closeIdx := strings.IndexByte(template[open:], '}')
		if closeIdx < 0 {
			b.WriteString(template[open:])
			break
		}

		closeIdx += open

		key := template[open+1 : closeIdx]

		if val, ok := state[key]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(template[open : closeIdx+1])
		}

		i = closeIdx + 1
	}

	return b.String()
}
