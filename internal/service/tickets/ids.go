package tickets

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewRunPrefix returns a short random prefix that distinguishes the ids of
// one pipeline run from another.
func NewRunPrefix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// IDSequence hands out ticket ids for a single batch. It is not safe for
// concurrent use; every run owns its own sequence.
type IDSequence struct {
	prefix string
	taken  map[string]struct{}
}

// NewIDSequence creates a sequence that generates TICKET-<prefix>-<n> ids.
func NewIDSequence(prefix string) *IDSequence {
	return &IDSequence{
		prefix: prefix,
		taken:  make(map[string]struct{}),
	}
}

// Reserve claims id. It returns false when id is already taken.
func (s *IDSequence) Reserve(id string) bool {
	if _, ok := s.taken[id]; ok {
		return false
	}
	s.taken[id] = struct{}{}
	return true
}

// Next returns an unused id for the draft at the given 1-based position.
func (s *IDSequence) Next(position int) string {
	base := fmt.Sprintf("TICKET-%s-%d", s.prefix, position)
	if s.prefix == "" {
		base = fmt.Sprintf("TICKET-%d", position)
	}
	id := base
	for n := 2; !s.Reserve(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}
