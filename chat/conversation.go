package chat

import "github.com/xiaoyuanzhu-com/project-chat/db"

// Placeholder is shown in place of the reply while the assistant is working
const Placeholder = "Thinking..."

// Entry is one line of the chat window
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Pending bool   `json:"pending,omitempty"`
}

// Conversation is the ordered message list of one thread. The placeholder is
// tracked by its Pending flag, so a user who literally types "Thinking..."
// never loses that message when the reply arrives.
type Conversation struct {
	entries []Entry
}

// NewConversation builds a conversation from stored messages
func NewConversation(msgs []db.Message) *Conversation {
	c := &Conversation{entries: make([]Entry, 0, len(msgs)+2)}
	for _, m := range msgs {
		c.entries = append(c.entries, Entry{Role: m.Role, Content: m.Content})
	}
	return c
}

// Append adds the user's message followed by the placeholder
func (c *Conversation) Append(content string) {
	c.entries = append(c.entries,
		Entry{Role: db.RoleUser, Content: content},
		Entry{Role: db.RoleAssistant, Content: Placeholder, Pending: true},
	)
}

// Resolve replaces the oldest pending placeholder with the reply in place.
// It reports false when nothing was pending.
func (c *Conversation) Resolve(reply string) bool {
	for i := range c.entries {
		if c.entries[i].Pending {
			c.entries[i] = Entry{Role: db.RoleAssistant, Content: reply}
			return true
		}
	}
	return false
}

// Fail drops the oldest pending placeholder, keeping the user's message
func (c *Conversation) Fail() bool {
	for i := range c.entries {
		if c.entries[i].Pending {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Pending reports whether a reply is outstanding
func (c *Conversation) Pending() bool {
	for _, e := range c.entries {
		if e.Pending {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries
func (c *Conversation) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
