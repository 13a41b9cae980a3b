package browser

import "sort"

// Selection is the set of file names selected in the current directory.
// The zero value is an empty selection.
type Selection struct {
	names map[string]struct{}
}

// Toggle adds name if absent and removes it if present. Returns whether name
// is selected afterwards.
func (s *Selection) Toggle(name string) bool {
	if s.names == nil {
		s.names = make(map[string]struct{})
	}

	if _, ok := s.names[name]; ok {
		delete(s.names, name)
		return false
	}

	s.names[name] = struct{}{}

	return true
}

// Has reports whether name is selected.
func (s *Selection) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of selected names.
func (s *Selection) Len() int {
	return len(s.names)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.names = nil
}

// Names returns the selected names in sorted order.
func (s *Selection) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}
