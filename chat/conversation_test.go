package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xiaoyuanzhu-com/project-chat/db"
)

func contents(c *Conversation) []string {
	entries := c.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func TestConversation_AppendAndResolve(t *testing.T) {
	c := NewConversation(nil)
	c.Append("make a project")

	assert.Equal(t, []string{"make a project", Placeholder}, contents(c))
	assert.True(t, c.Pending())

	assert.True(t, c.Resolve("What is it called?"))
	assert.Equal(t, []string{"make a project", "What is it called?"}, contents(c))
	assert.False(t, c.Pending())
	assert.False(t, c.Resolve("again"))
}

func TestConversation_LiteralPlaceholderTextSurvives(t *testing.T) {
	c := NewConversation([]db.Message{
		{Role: db.RoleUser, Content: Placeholder},
		{Role: db.RoleAssistant, Content: "Pardon?"},
	})
	c.Append("Thinking...")
	c.Resolve("You said that twice")

	assert.Equal(t, []string{Placeholder, "Pardon?", "Thinking...", "You said that twice"}, contents(c))
}

func TestConversation_Fail(t *testing.T) {
	c := NewConversation(nil)
	c.Append("hello")

	assert.True(t, c.Fail())
	assert.Equal(t, []Entry{{Role: db.RoleUser, Content: "hello"}}, c.Entries())
	assert.False(t, c.Fail())
}

func TestConversation_ResolvesOldestPendingFirst(t *testing.T) {
	c := NewConversation(nil)
	c.Append("one")
	c.Append("two")

	c.Resolve("reply one")

	entries := c.Entries()
	assert.Equal(t, "reply one", entries[1].Content)
	assert.True(t, entries[3].Pending)
}

func TestConversation_EntriesIsACopy(t *testing.T) {
	c := NewConversation(nil)
	c.Append("hi")

	entries := c.Entries()
	entries[0].Content = "changed"

	assert.Equal(t, "hi", contents(c)[0])
}
