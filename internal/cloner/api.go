package cloner

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// API is the slice of the Discord REST surface a clone job needs.
// *discord.Client satisfies it; every method fails with a *discord.APIError.
type API interface {
	CurrentUser(ctx context.Context) (*discordgo.User, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	UpdateGuild(ctx context.Context, guildID string, changes map[string]any) (*discordgo.Guild, error)

	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams) (*discordgo.Role, error)
	DeleteRole(ctx context.Context, guildID, roleID string) error

	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error

	GuildEmojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error)
	CreateEmoji(ctx context.Context, guildID string, params *discordgo.EmojiParams) (*discordgo.Emoji, error)
	DeleteEmoji(ctx context.Context, guildID, emojiID string) error

	ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error)
	CreateWebhook(ctx context.Context, channelID, name, avatar string) (*discordgo.Webhook, error)

	ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error)
	SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error)

	// FetchAsset downloads a CDN asset and returns it as a data URI.
	FetchAsset(ctx context.Context, assetPath string) (string, error)
}
