package cloner

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
)

func customEmojis(emojis []*discordgo.Emoji) []*discordgo.Emoji {
	out := make([]*discordgo.Emoji, 0, len(emojis))
	for _, e := range emojis {
		if e != nil && !e.Managed && e.ID != "" {
			out = append(out, e)
		}
	}
	return out
}

// mapRoles translates emoji role restrictions, dropping unmapped roles.
func (j *Job) mapRoles(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := j.maps.Role(id); ok {
			out = append(out, t)
		}
	}
	return out
}

func (j *Job) cloneEmojis(ctx context.Context) error {
	j.logf("Fetching emojis from both servers...")
	source, target, err := fetchPair(ctx, j, "emojis", j.api.GuildEmojis)
	if err != nil {
		return err
	}

	create := customEmojis(source)
	stale := customEmojis(target)
	j.logf("Found %d emojis to clone and %d emojis to delete", len(create), len(stale))

	describe := func(e *discordgo.Emoji) string { return quoted("emoji", e.Name) }

	if _, err := deleteAll(ctx, j, stale, j.delays.EmojiDelete, describe,
		func(ctx context.Context, e *discordgo.Emoji) error {
			return j.api.DeleteEmoji(ctx, j.targetID, e.ID)
		}); err != nil {
		return err
	}

	created := 0
	for i, e := range create {
		var image string
		ok, err := j.attempt(ctx, retryOnce, "download "+describe(e), func(ctx context.Context) error {
			var err error
			image, err = j.api.FetchAsset(ctx, discord.EmojiPath(e.ID, e.Animated))
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			j.wait(ctx, j.delays.EmojiCreate)
			continue
		}

		ok, err = j.attempt(ctx, retrySameItem, "create "+describe(e), func(ctx context.Context) error {
			_, err := j.api.CreateEmoji(ctx, j.targetID, &discordgo.EmojiParams{
				Name:  e.Name,
				Image: image,
				Roles: j.mapRoles(e.Roles),
			})
			return err
		})
		if err != nil {
			return err
		}
		if ok {
			created++
			j.stats.update(func(s *domain.Stats) { s.EmojisCloned++ })
			j.logf("Created %s (%d/%d)", describe(e), i+1, len(create))
		}
		j.wait(ctx, j.delays.EmojiCreate)
	}
	j.logf("Created %d/%d emojis", created, len(create))
	return nil
}
