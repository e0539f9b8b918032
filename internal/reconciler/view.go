package reconciler

import (
	"strings"

	"github.com/Minglarn/trafikinfo-sub001/internal/event"
)

// View derives the search-filtered feed from the canonical collection:
// case-insensitive substring match over title, location, description and
// message type, preserving canonical order. The result is always a fresh
// slice; the canonical collection is never handed out for mutation.
func (s *Service) View(search string) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		out := make([]event.Event, len(s.events))
		copy(out, s.events)
		return out
	}

	out := make([]event.Event, 0, len(s.events))
	for _, ev := range s.events {
		if matchesSearch(ev, term) {
			out = append(out, ev)
		}
	}
	return out
}

func matchesSearch(ev event.Event, term string) bool {
	for _, field := range []string{ev.Title, ev.Location, ev.Description, ev.MessageType} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
