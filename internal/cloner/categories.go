package cloner

import (
	"context"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/domain"
)

func categoriesOf(channels []*discordgo.Channel) []*discordgo.Channel {
	out := make([]*discordgo.Channel, 0, len(channels))
	for _, c := range channels {
		if c != nil && c.Type == discordgo.ChannelTypeGuildCategory {
			out = append(out, c)
		}
	}
	return out
}

// sortByPosition orders channels lowest position first.
func sortByPosition(channels []*discordgo.Channel) {
	sort.SliceStable(channels, func(a, b int) bool {
		return channels[a].Position < channels[b].Position
	})
}

func (j *Job) cloneCategories(ctx context.Context) error {
	j.logf("Fetching categories from both servers...")
	source, target, err := fetchPair(ctx, j, "channels", j.api.GuildChannels)
	if err != nil {
		return err
	}

	create := categoriesOf(source)
	sortByPosition(create)
	stale := categoriesOf(target)
	j.logf("Found %d categories to clone and %d categories to delete", len(create), len(stale))

	describe := func(c *discordgo.Channel) string { return quoted("category", c.Name) }

	if _, err := deleteAll(ctx, j, stale, j.delays.CategoryDelete, describe,
		func(ctx context.Context, c *discordgo.Channel) error {
			return j.api.DeleteChannel(ctx, c.ID)
		}); err != nil {
		return err
	}

	n, err := createAll(ctx, j, create, j.createPolicy(), j.delays.CategoryCreate, describe,
		func(ctx context.Context, c *discordgo.Channel) (*discordgo.Channel, error) {
			return j.api.CreateChannel(ctx, j.targetID, discordgo.GuildChannelCreateData{
				Name:                 c.Name,
				Type:                 discordgo.ChannelTypeGuildCategory,
				Position:             c.Position,
				PermissionOverwrites: translateOverwrites(c.PermissionOverwrites, j.maps, j.sourceID, j.targetID),
			})
		},
		func(src, created *discordgo.Channel) {
			j.maps.RecordCategory(src.ID, created.ID)
			j.stats.update(func(s *domain.Stats) { s.CategoriesCloned++ })
		})
	if err != nil {
		return err
	}
	j.logf("Created %d/%d categories", n, len(create))
	return nil
}
