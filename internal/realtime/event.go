package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ChangeEvent describes one row change flowing through the change feed
type ChangeEvent struct {
	Table     string          `json:"table"`
	Action    string          `json:"action"` // INSERT, UPDATE, DELETE
	Old       json.RawMessage `json:"old,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Summarize produces a short human-readable description of the change,
// listing the fields whose values differ between old and new
func (e *ChangeEvent) Summarize() string {
	switch e.Action {
	case "INSERT":
		return fmt.Sprintf("%s created", e.Table)
	case "DELETE":
		return fmt.Sprintf("%s removed", e.Table)
	}

	changed := diffFields(e.Old, e.New)
	if len(changed) == 0 {
		return fmt.Sprintf("%s updated", e.Table)
	}
	return fmt.Sprintf("%s updated: %s", e.Table, joinFields(changed))
}

// diffFields returns the names of top-level fields that differ between two
// JSON objects. Unparsable payloads yield no fields.
func diffFields(oldRaw, newRaw json.RawMessage) []string {
	var oldMap, newMap map[string]interface{}
	if err := json.Unmarshal(oldRaw, &oldMap); err != nil {
		return nil
	}
	if err := json.Unmarshal(newRaw, &newMap); err != nil {
		return nil
	}

	changed := []string{}
	for key, newVal := range newMap {
		oldVal, ok := oldMap[key]
		if !ok || !jsonEqual(oldVal, newVal) {
			changed = append(changed, key)
		}
	}
	for key := range oldMap {
		if _, ok := newMap[key]; !ok {
			changed = append(changed, key)
		}
	}

	sort.Strings(changed)
	return changed
}

// jsonEqual compares decoded JSON values by re-encoding them
func jsonEqual(a, b interface{}) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}
