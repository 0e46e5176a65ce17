package bridge

import (
	"encoding/json"
	"strings"
	"sync"
)

// SlotName is the conventional name executed code binds its output to.
const SlotName = "_result_"

// Slot is the designated output slot of one execution. Code may bind it at
// its own discretion; an unbound slot means the execution produced no result.
// The zero value is an empty, unbound slot.
type Slot struct {
	mu    sync.Mutex
	value any
	set   bool
}

// Set binds v to the slot, replacing any earlier value.
func (s *Slot) Set(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.set = true
}

// Value returns the bound value and whether the slot was bound.
func (s *Slot) Value() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// IsSet reports whether the slot was bound.
func (s *Slot) IsSet() bool {
	_, ok := s.Value()
	return ok
}

// ExtractSlotLine recovers a slot value that an engine printed on stdout as
// a single JSON object line keyed by SlotName, e.g. {"_result_": 42}.
//
// The first such line is removed from the returned stdout; every other line,
// JSON or not, is preserved. When no line carries the slot, value is nil,
// found is false, and stdout is returned unchanged.
func ExtractSlotLine(stdout string) (value any, remaining string, found bool) {
	if stdout == "" {
		return nil, "", false
	}

	lines := strings.Split(stdout, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !found && strings.HasPrefix(trimmed, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
				if v, ok := obj[SlotName]; ok {
					value = v
					found = true
					continue
				}
			}
		}
		kept = append(kept, line)
	}

	if !found {
		return nil, stdout, false
	}
	return value, strings.Join(kept, "\n"), true
}
