package cloner

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/discord"
)

// guildChanges builds a PATCH body holding only the fields that differ.
// Images are downloaded as data URIs; a failed download leaves the field out.
func (j *Job) guildChanges(ctx context.Context, source, target *discordgo.Guild) (map[string]any, error) {
	changes := make(map[string]any)

	if source.Name != target.Name {
		changes["name"] = source.Name
		j.logf("Server name will change to %q", source.Name)
	}

	images := []struct {
		field, srcHash, tgtHash, path string
	}{
		{"icon", source.Icon, target.Icon, discord.IconPath(source.ID, source.Icon)},
		{"banner", source.Banner, target.Banner, discord.BannerPath(source.ID, source.Banner)},
	}
	for _, img := range images {
		if img.srcHash == img.tgtHash {
			continue
		}
		if img.srcHash == "" {
			changes[img.field] = nil
			continue
		}
		var data string
		ok, err := j.attempt(ctx, retryOnce, "download server "+img.field, func(ctx context.Context) error {
			var err error
			data, err = j.api.FetchAsset(ctx, img.path)
			return err
		})
		if err != nil {
			return nil, err
		}
		if ok {
			changes[img.field] = data
			j.logf("Server %s will be updated", img.field)
		}
	}

	if source.Description != target.Description {
		if source.Description == "" {
			changes["description"] = nil
		} else {
			changes["description"] = source.Description
		}
	}
	if source.VerificationLevel != target.VerificationLevel {
		changes["verification_level"] = source.VerificationLevel
	}
	if source.DefaultMessageNotifications != target.DefaultMessageNotifications {
		changes["default_message_notifications"] = source.DefaultMessageNotifications
	}
	if source.ExplicitContentFilter != target.ExplicitContentFilter {
		changes["explicit_content_filter"] = source.ExplicitContentFilter
	}
	return changes, nil
}

func (j *Job) cloneServerInfo(ctx context.Context, source, target *discordgo.Guild) error {
	changes, err := j.guildChanges(ctx, source, target)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		j.logf("Server info already matches, nothing to update")
		return nil
	}

	ok, err := j.attempt(ctx, retryOnce, "update server info", func(ctx context.Context) error {
		_, err := j.api.UpdateGuild(ctx, j.targetID, changes)
		return err
	})
	if err != nil {
		return err
	}
	if ok {
		j.logf("Updated %d server settings", len(changes))
	}
	return nil
}
