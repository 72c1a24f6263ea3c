package cloner

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/domain"
)

func (j *Job) cloneMessages(ctx context.Context) error {
	j.logf("Fetching channels for message cloning (last %d per channel)...", j.opts.MessageLimit)
	source, target, err := fetchPair(ctx, j, "channels", j.api.GuildChannels)
	if err != nil {
		return err
	}
	resolver := newTargetResolver(j.maps, textChannels(target))

	total := 0
	for _, sc := range textChannels(source) {
		if j.halted(ctx) {
			return errStopped
		}

		tc, found := resolver.resolve(sc)
		if !found {
			j.logf("WARNING: no target channel for #%s, skipping its messages", sc.Name)
			continue
		}

		n, err := j.copyChannelMessages(ctx, sc, tc)
		if err != nil {
			return err
		}
		total += n
	}
	j.logf("Cloned %d messages", total)
	return nil
}

// copyChannelMessages reposts the most recent messages of src into dst,
// oldest first. A rate limited message is dropped once the wait is over.
func (j *Job) copyChannelMessages(ctx context.Context, src, dst *discordgo.Channel) (int, error) {
	var msgs []*discordgo.Message
	ok, err := j.attempt(ctx, retryOnce, fmt.Sprintf("fetch messages from #%s", src.Name), func(ctx context.Context) error {
		var err error
		msgs, err = j.api.ChannelMessages(ctx, src.ID, j.opts.MessageLimit)
		return err
	})
	if err != nil || !ok || len(msgs) == 0 {
		return 0, err
	}

	slices.Reverse(msgs)
	j.logf("Cloning %d messages from #%s", len(msgs), src.Name)

	sent := 0
	for _, m := range msgs {
		if m == nil {
			continue
		}
		content := composeMessage(m, j.maps)
		ok, err := j.attempt(ctx, skipAfterWait, fmt.Sprintf("post message %s in #%s", m.ID, dst.Name), func(ctx context.Context) error {
			_, err := j.api.SendMessage(ctx, dst.ID, content)
			return err
		})
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
			j.stats.update(func(s *domain.Stats) { s.MessagesCloned++ })
		}
		j.wait(ctx, j.delays.Message)
	}
	j.logf("Cloned %d/%d messages into #%s", sent, len(msgs), dst.Name)
	return sent, nil
}
