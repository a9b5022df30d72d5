package auditevent

import (
	"sort"
	"strings"

	"github.com/wI2L/jsondiff"
)

// ChangedFields computes the top-level keys whose values differ between the
// two snapshots, including keys present on only one side. Both snapshots are
// expected to be sanitized already.
func ChangedFields(oldValues, newValues map[string]any) []string {
	if oldValues == nil && newValues == nil {
		return nil
	}
	if oldValues == nil {
		oldValues = map[string]any{}
	}
	if newValues == nil {
		newValues = map[string]any{}
	}

	patch, err := jsondiff.Compare(oldValues, newValues)
	if err != nil {
		// Snapshots that cannot be diffed are reported wholesale.
		return unionKeys(oldValues, newValues)
	}

	seen := make(map[string]struct{}, len(patch))
	for _, op := range patch {
		key := topLevelKey(op.Path)
		if key == "" {
			continue
		}
		seen[key] = struct{}{}
	}

	fields := make([]string, 0, len(seen))
	for key := range seen {
		fields = append(fields, key)
	}
	sort.Strings(fields)
	return fields
}

func topLevelKey(pointer string) string {
	trimmed := strings.TrimPrefix(pointer, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	// Undo JSON-pointer escaping for keys containing "/" or "~".
	trimmed = strings.ReplaceAll(trimmed, "~1", "/")
	return strings.ReplaceAll(trimmed, "~0", "~")
}

func unionKeys(oldValues, newValues map[string]any) []string {
	seen := make(map[string]struct{}, len(oldValues)+len(newValues))
	for key := range oldValues {
		seen[key] = struct{}{}
	}
	for key := range newValues {
		seen[key] = struct{}{}
	}
	fields := make([]string, 0, len(seen))
	for key := range seen {
		fields = append(fields, key)
	}
	sort.Strings(fields)
	return fields
}
