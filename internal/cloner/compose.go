package cloner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	// MaxMessageLength is the longest content the API accepts, in characters.
	MaxMessageLength = 2000
	truncationMarker = "..."
	timestampLayout  = "2006-01-02 15:04:05 UTC"
)

var (
	roleMentionPattern    = regexp.MustCompile(`<@&(\d+)>`)
	channelMentionPattern = regexp.MustCompile(`<#(\d+)>`)
)

// composeMessage renders a source message as plain content attributed to its
// author, with attachments listed as links.
func composeMessage(m *discordgo.Message, maps *Mapper) string {
	var b strings.Builder
	b.WriteString("**")
	b.WriteString(authorName(m.Author))
	b.WriteString("** (")
	b.WriteString(m.Timestamp.UTC().Format(timestampLayout))
	b.WriteString(")\n")
	b.WriteString(rewriteMentions(m.Content, maps))

	if len(m.Attachments) > 0 {
		b.WriteString("\n\n**Attachments:**\n")
		for i, a := range m.Attachments {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("• ")
			b.WriteString(a.URL)
		}
	}
	return truncateMessage(b.String(), MaxMessageLength)
}

func authorName(u *discordgo.User) string {
	switch {
	case u == nil:
		return "Unknown"
	case u.GlobalName != "":
		return u.GlobalName
	default:
		return u.Username
	}
}

// truncateMessage cuts s to at most limit characters, ending in "..." when cut.
func truncateMessage(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString(truncationMarker)
	if keep < 0 {
		keep = 0
	}
	return string([]rune(s)[:keep]) + truncationMarker
}

// rewriteMentions points role and channel mentions at their target
// counterparts. Mentions of unmapped entities are left as they are.
func rewriteMentions(content string, maps *Mapper) string {
	if maps == nil || !strings.Contains(content, "<") {
		return content
	}
	content = roleMentionPattern.ReplaceAllStringFunc(content, func(s string) string {
		id := roleMentionPattern.FindStringSubmatch(s)[1]
		if t, ok := maps.Role(id); ok {
			return "<@&" + t + ">"
		}
		return s
	})
	return channelMentionPattern.ReplaceAllStringFunc(content, func(s string) string {
		id := channelMentionPattern.FindStringSubmatch(s)[1]
		if t, ok := maps.Channel(id); ok {
			return "<#" + t + ">"
		}
		if t, ok := maps.Category(id); ok {
			return "<#" + t + ">"
		}
		return s
	})
}
