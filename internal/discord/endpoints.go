package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// CurrentUser returns the user the credential belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*discordgo.User, error) {
	var u discordgo.User
	if err := c.Request(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Guild fetches a guild snapshot.
func (c *Client) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	var g discordgo.Guild
	if err := c.Request(ctx, http.MethodGet, "/guilds/"+url.PathEscape(guildID), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGuild patches a guild with the given fields only.
func (c *Client) UpdateGuild(ctx context.Context, guildID string, changes map[string]any) (*discordgo.Guild, error) {
	var g discordgo.Guild
	if err := c.Request(ctx, http.MethodPatch, "/guilds/"+url.PathEscape(guildID), changes, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GuildRoles lists a guild's roles.
func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	var roles []*discordgo.Role
	if err := c.Request(ctx, http.MethodGet, guildPath(guildID, "roles"), nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// CreateRole creates a role. The API places new roles at the bottom of the hierarchy.
func (c *Client) CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	var role discordgo.Role
	if err := c.Request(ctx, http.MethodPost, guildPath(guildID, "roles"), params, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole deletes a role.
func (c *Client) DeleteRole(ctx context.Context, guildID, roleID string) error {
	return c.Request(ctx, http.MethodDelete, guildPath(guildID, "roles", roleID), nil, nil)
}

// GuildChannels lists a guild's channels, categories included.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	var channels []*discordgo.Channel
	if err := c.Request(ctx, http.MethodGet, guildPath(guildID, "channels"), nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// CreateChannel creates a channel or category.
func (c *Client) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	var ch discordgo.Channel
	if err := c.Request(ctx, http.MethodPost, guildPath(guildID, "channels"), data, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// DeleteChannel deletes a channel or category.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.Request(ctx, http.MethodDelete, channelPath(channelID), nil, nil)
}

// GuildEmojis lists a guild's custom emojis.
func (c *Client) GuildEmojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error) {
	var emojis []*discordgo.Emoji
	if err := c.Request(ctx, http.MethodGet, guildPath(guildID, "emojis"), nil, &emojis); err != nil {
		return nil, err
	}
	return emojis, nil
}

// CreateEmoji uploads an emoji. params.Image must be a data URI.
func (c *Client) CreateEmoji(ctx context.Context, guildID string, params *discordgo.EmojiParams) (*discordgo.Emoji, error) {
	var emoji discordgo.Emoji
	if err := c.Request(ctx, http.MethodPost, guildPath(guildID, "emojis"), params, &emoji); err != nil {
		return nil, err
	}
	return &emoji, nil
}

// DeleteEmoji deletes an emoji.
func (c *Client) DeleteEmoji(ctx context.Context, guildID, emojiID string) error {
	return c.Request(ctx, http.MethodDelete, guildPath(guildID, "emojis", emojiID), nil, nil)
}

// ChannelWebhooks lists the webhooks of a channel.
func (c *Client) ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error) {
	var hooks []*discordgo.Webhook
	if err := c.Request(ctx, http.MethodGet, channelPath(channelID, "webhooks"), nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

type webhookCreate struct {
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// CreateWebhook creates an incoming webhook. An empty avatar creates it without one.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name, avatar string) (*discordgo.Webhook, error) {
	body := webhookCreate{Name: name}
	if avatar != "" {
		body.Avatar = &avatar
	}
	var hook discordgo.Webhook
	if err := c.Request(ctx, http.MethodPost, channelPath(channelID, "webhooks"), body, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// ChannelMessages returns up to limit of the most recent messages, newest first.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	var msgs []*discordgo.Message
	if err := c.Request(ctx, http.MethodGet, channelPath(channelID, "messages")+"?"+q.Encode(), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts plain content with all mention parsing disabled.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	body := discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	var msg discordgo.Message
	if err := c.Request(ctx, http.MethodPost, channelPath(channelID, "messages"), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func guildPath(guildID string, parts ...string) string {
	p := "/guilds/" + url.PathEscape(guildID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func channelPath(channelID string, parts ...string) string {
	p := fmt.Sprintf("/channels/%s", url.PathEscape(channelID))
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}
