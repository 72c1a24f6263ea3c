package cloner

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
)

const defaultWebhookName = "Cloned Webhook"

func incomingWebhooks(hooks []*discordgo.Webhook) []*discordgo.Webhook {
	out := make([]*discordgo.Webhook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil && h.Type == discordgo.WebhookTypeIncoming {
			out = append(out, h)
		}
	}
	return out
}

func (j *Job) cloneWebhooks(ctx context.Context) error {
	j.logf("Fetching channels for webhook cloning...")
	source, target, err := fetchPair(ctx, j, "channels", j.api.GuildChannels)
	if err != nil {
		return err
	}
	resolver := newTargetResolver(j.maps, textChannels(target))

	created := 0
	for _, sc := range textChannels(source) {
		if j.halted(ctx) {
			return errStopped
		}

		var hooks []*discordgo.Webhook
		ok, err := j.attempt(ctx, retryOnce, fmt.Sprintf("read webhooks of #%s", sc.Name), func(ctx context.Context) error {
			var err error
			hooks, err = j.api.ChannelWebhooks(ctx, sc.ID)
			return err
		})
		if err != nil {
			return err
		}
		hooks = incomingWebhooks(hooks)
		if !ok || len(hooks) == 0 {
			continue
		}

		tc, found := resolver.resolve(sc)
		if !found {
			j.logf("WARNING: no target channel for #%s, skipping %d webhooks", sc.Name, len(hooks))
			continue
		}

		for _, h := range hooks {
			name := h.Name
			if name == "" {
				name = defaultWebhookName
			}
			avatar := j.webhookAvatar(ctx, h)

			ok, err := j.attempt(ctx, retryOnce, fmt.Sprintf("create webhook %q in #%s", name, tc.Name), func(ctx context.Context) error {
				_, err := j.api.CreateWebhook(ctx, tc.ID, name, avatar)
				return err
			})
			if err != nil {
				return err
			}
			if ok {
				created++
				j.stats.update(func(s *domain.Stats) { s.WebhooksCloned++ })
				j.logf("Created webhook %q in #%s", name, tc.Name)
			}
			j.wait(ctx, j.delays.Webhook)
		}
	}
	j.logf("Created %d webhooks", created)
	return nil
}

// webhookAvatar downloads the avatar of h. A failed download only costs the
// avatar, so it is logged as a warning and not counted.
func (j *Job) webhookAvatar(ctx context.Context, h *discordgo.Webhook) string {
	if h.Avatar == "" || j.opts.SkipAvatars {
		return ""
	}
	data, err := j.api.FetchAsset(ctx, discord.AvatarPath(h.ID, h.Avatar))
	if err != nil {
		j.logf("WARNING: could not download avatar of webhook %q: %v", h.Name, err)
		return ""
	}
	return data
}
