package player

import "sync"

// MessageRef points at a guild's now-playing message. Both ids are needed for
// later edits/deletes since the message may live in a channel the user has
// since moved away from.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// MessageRegistry tracks now-playing message refs per guild with an explicit
// register/unregister lifecycle. The coordinator clears a guild's ref when the
// track it announced is gone; the UI layer owns sending and editing.
type MessageRegistry struct {
	mu   sync.Mutex
	refs map[string]MessageRef
}

func NewMessageRegistry() *MessageRegistry {
	return &MessageRegistry{refs: make(map[string]MessageRef)}
}

func (r *MessageRegistry) Register(guildID string, ref MessageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[guildID] = ref
}

func (r *MessageRegistry) Unregister(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refs, guildID)
}

func (r *MessageRegistry) Lookup(guildID string) (MessageRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refs[guildID]
	return ref, ok
}
