package cloner

// Mapper translates source entity IDs into the IDs of the target entities
// created from them. A pair is recorded only after the target entity exists.
// A Mapper belongs to one job and is not safe for concurrent use.
type Mapper struct {
	roles      map[string]string
	categories map[string]string
	channels   map[string]string
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{
		roles:      make(map[string]string),
		categories: make(map[string]string),
		channels:   make(map[string]string),
	}
}

func (m *Mapper) RecordRole(sourceID, targetID string)     { m.roles[sourceID] = targetID }
func (m *Mapper) RecordCategory(sourceID, targetID string) { m.categories[sourceID] = targetID }
func (m *Mapper) RecordChannel(sourceID, targetID string)  { m.channels[sourceID] = targetID }

// Role returns the target role created from sourceID.
func (m *Mapper) Role(sourceID string) (string, bool) {
	id, ok := m.roles[sourceID]
	return id, ok
}

// Category returns the target category created from sourceID.
func (m *Mapper) Category(sourceID string) (string, bool) {
	id, ok := m.categories[sourceID]
	return id, ok
}

// Channel returns the target channel created from sourceID.
func (m *Mapper) Channel(sourceID string) (string, bool) {
	id, ok := m.channels[sourceID]
	return id, ok
}

// Counts returns the number of recorded roles, categories and channels.
func (m *Mapper) Counts() (roles, categories, channels int) {
	return len(m.roles), len(m.categories), len(m.channels)
}
