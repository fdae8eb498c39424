package orchestration

import (
	"strings"
	"sync"
)

// Speaker identifies who produced a conversation entry.
type Speaker string

const (
	SpeakerUser      Speaker = "you"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
	SpeakerError     Speaker = "error"
)

// ConversationEntry is one logical message in the transcript. Assistant
// entries are stored sentence by sentence so partially delivered
// responses render incrementally.
type ConversationEntry struct {
	Speaker   Speaker
	Sentences []string

	// Streaming marks an entry that is still being produced. A
	// streaming entry may grow or be replaced before it settles.
	Streaming bool
}

func (e ConversationEntry) Text() string {
	return strings.Join(e.Sentences, " ")
}

// conversationLog is the append-mostly transcript of the session. An
// entry's index is stable for its lifetime so in-flight producers can
// refer back to the entry they opened.
type conversationLog struct {
	mu      sync.RWMutex
	entries []ConversationEntry
}

// Snapshot returns a point-in-time copy of the transcript.
func (c *conversationLog) Snapshot() []ConversationEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]ConversationEntry, len(c.entries))
	copy(entries, c.entries)
	for i := range entries {
		sentences := make([]string, len(entries[i].Sentences))
		copy(sentences, entries[i].Sentences)
		entries[i].Sentences = sentences
	}
	return entries
}

func (c *conversationLog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Append adds a settled entry and returns its index.
func (c *conversationLog) Append(speaker Speaker, text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, ConversationEntry{
		Speaker:   speaker,
		Sentences: []string{text},
	})
	return len(c.entries) - 1
}

// Open adds a streaming entry and returns its index.
func (c *conversationLog) Open(speaker Speaker, sentences ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, ConversationEntry{
		Speaker:   speaker,
		Sentences: append([]string(nil), sentences...),
		Streaming: true,
	})
	return len(c.entries) - 1
}

// Extend appends sentences to the entry at index. Out-of-range indices
// are ignored, the producer may have been raced by a reset.
func (c *conversationLog) Extend(index int, sentences ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.entries) {
		return
	}
	c.entries[index].Sentences = append(c.entries[index].Sentences, sentences...)
}

// Replace swaps the sentences of the entry at index wholesale.
func (c *conversationLog) Replace(index int, sentences ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.entries) {
		return
	}
	c.entries[index].Sentences = append([]string(nil), sentences...)
}

// Settle clears the streaming flag of the entry at index.
func (c *conversationLog) Settle(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.entries) {
		return
	}
	c.entries[index].Streaming = false
}

// ReplaceLast rewrites the most recent entry by the given speaker,
// walking back from the end. Returns false when no such entry exists.
func (c *conversationLog) ReplaceLast(speaker Speaker, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].Speaker == speaker {
			c.entries[i].Sentences = []string{text}
			return true
		}
	}
	return false
}

// DropLast removes the most recent entry by the given speaker. Returns
// false when no such entry exists.
func (c *conversationLog) DropLast(speaker Speaker) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].Speaker == speaker {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}
