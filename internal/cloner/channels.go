package cloner

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/domain"
)

func isVoiceLike(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildVoice || t == discordgo.ChannelTypeGuildStageVoice
}

func isTextLike(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildText || t == discordgo.ChannelTypeGuildNews || t == discordgo.ChannelTypeGuildForum
}

// plainChannels returns the text-like and voice-like channels. Categories,
// threads and kinds the stats do not track (directory, media) are left out.
func plainChannels(channels []*discordgo.Channel) []*discordgo.Channel {
	out := make([]*discordgo.Channel, 0, len(channels))
	for _, c := range channels {
		if c != nil && (isTextLike(c.Type) || isVoiceLike(c.Type)) {
			out = append(out, c)
		}
	}
	return out
}

func (j *Job) channelCreateData(c *discordgo.Channel) discordgo.GuildChannelCreateData {
	data := discordgo.GuildChannelCreateData{
		Name:                 c.Name,
		Type:                 c.Type,
		Position:             c.Position,
		PermissionOverwrites: translateOverwrites(c.PermissionOverwrites, j.maps, j.sourceID, j.targetID),
	}
	if c.ParentID != "" {
		if parent, ok := j.maps.Category(c.ParentID); ok {
			data.ParentID = parent
		}
	}
	if isVoiceLike(c.Type) {
		data.Bitrate = c.Bitrate
		data.UserLimit = c.UserLimit
	} else {
		data.Topic = c.Topic
		data.NSFW = c.NSFW
		data.RateLimitPerUser = c.RateLimitPerUser
	}
	return data
}

func (j *Job) cloneChannels(ctx context.Context) error {
	j.logf("Fetching channels from both servers...")
	source, target, err := fetchPair(ctx, j, "channels", j.api.GuildChannels)
	if err != nil {
		return err
	}

	create := plainChannels(source)
	sortByPosition(create)
	stale := plainChannels(target)
	j.logf("Found %d channels to clone and %d channels to delete", len(create), len(stale))

	describe := func(c *discordgo.Channel) string { return quoted("channel", c.Name) }

	if _, err := deleteAll(ctx, j, stale, j.delays.ChannelDelete, describe,
		func(ctx context.Context, c *discordgo.Channel) error {
			return j.api.DeleteChannel(ctx, c.ID)
		}); err != nil {
		return err
	}

	n, err := createAll(ctx, j, create, j.createPolicy(), j.delays.ChannelCreate, describe,
		func(ctx context.Context, c *discordgo.Channel) (*discordgo.Channel, error) {
			return j.api.CreateChannel(ctx, j.targetID, j.channelCreateData(c))
		},
		func(src, created *discordgo.Channel) {
			j.maps.RecordChannel(src.ID, created.ID)
			j.stats.update(func(s *domain.Stats) {
				switch {
				case isVoiceLike(src.Type):
					s.VoiceChannelsCloned++
				case isTextLike(src.Type):
					s.TextChannelsCloned++
				}
			})
		})
	if err != nil {
		return err
	}
	j.logf("Created %d/%d channels", n, len(create))
	return nil
}

// textChannels returns the text channels of a guild, lowest position first.
func textChannels(channels []*discordgo.Channel) []*discordgo.Channel {
	out := make([]*discordgo.Channel, 0, len(channels))
	for _, c := range channels {
		if c != nil && c.Type == discordgo.ChannelTypeGuildText {
			out = append(out, c)
		}
	}
	sortByPosition(out)
	return out
}

// targetResolver finds the target counterpart of a source text channel: the
// channel created from it in this job, else the first one with the same name.
type targetResolver struct {
	maps   *Mapper
	byID   map[string]*discordgo.Channel
	byName map[string]*discordgo.Channel
}

func newTargetResolver(maps *Mapper, target []*discordgo.Channel) *targetResolver {
	r := &targetResolver{
		maps:   maps,
		byID:   make(map[string]*discordgo.Channel, len(target)),
		byName: make(map[string]*discordgo.Channel, len(target)),
	}
	for _, c := range target {
		r.byID[c.ID] = c
		if _, dup := r.byName[c.Name]; !dup {
			r.byName[c.Name] = c
		}
	}
	return r
}

func (r *targetResolver) resolve(src *discordgo.Channel) (*discordgo.Channel, bool) {
	if id, ok := r.maps.Channel(src.ID); ok {
		if c, ok := r.byID[id]; ok {
			return c, true
		}
	}
	c, ok := r.byName[src.Name]
	return c, ok
}
