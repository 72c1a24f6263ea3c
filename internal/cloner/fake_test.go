package cloner

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
)

const (
	sourceGuild = "100000000000000001"
	targetGuild = "200000000000000002"
)

func rateLimited(d time.Duration) error {
	return &discord.APIError{Kind: discord.KindRateLimited, Status: 429, RetryAfter: d}
}

func apiError(kind discord.Kind, status int) error {
	return &discord.APIError{Kind: kind, Status: status, Message: "scripted"}
}

type sentMessage struct {
	ChannelID string
	Content   string
}

// fakeAPI is an in-memory guild store. Errors queued with fail are returned
// by the named operation, one per call, before it starts succeeding.
type fakeAPI struct {
	mu sync.Mutex

	user     *discordgo.User
	guilds   map[string]*discordgo.Guild
	roles    map[string][]*discordgo.Role
	channels map[string][]*discordgo.Channel
	emojis   map[string][]*discordgo.Emoji
	webhooks map[string][]*discordgo.Webhook
	messages map[string][]*discordgo.Message
	assets   map[string]string

	failures map[string][]error
	nextID   int

	calls          []string
	createdRoles   []*discordgo.RoleParams
	createdChans   []discordgo.GuildChannelCreateData
	createdEmojis  []*discordgo.EmojiParams
	createdHooks   []string
	sent           []sentMessage
	updates        []map[string]any
	messageLimits  []int
	onCreateRole   func(count int)
	createRoleHits int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		user: &discordgo.User{ID: "1", Username: "cloner"},
		guilds: map[string]*discordgo.Guild{
			sourceGuild: {ID: sourceGuild, Name: "Source"},
			targetGuild: {ID: targetGuild, Name: "Target"},
		},
		roles:    map[string][]*discordgo.Role{},
		channels: map[string][]*discordgo.Channel{},
		emojis:   map[string][]*discordgo.Emoji{},
		webhooks: map[string][]*discordgo.Webhook{},
		messages: map[string][]*discordgo.Message{},
		assets:   map[string]string{},
		failures: map[string][]error{},
		nextID:   900000000000000000,
	}
}

func (f *fakeAPI) fail(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// enter records a call and pops a scripted error. Callers hold f.mu.
func (f *fakeAPI) enter(op, arg string) error {
	f.calls = append(f.calls, op+":"+arg)
	if q := f.failures[op]; len(q) > 0 {
		f.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeAPI) newID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > len(op) && c[:len(op)+1] == op+":" {
			n++
		}
	}
	return n
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CurrentUser", ""); err != nil {
		return nil, err
	}
	return f.user, nil
}

func (f *fakeAPI) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Guild", guildID); err != nil {
		return nil, err
	}
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, apiError(discord.KindNotFound, 404)
	}
	cp := *g
	return &cp, nil
}

func (f *fakeAPI) UpdateGuild(ctx context.Context, guildID string, changes map[string]any) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateGuild", guildID); err != nil {
		return nil, err
	}
	f.updates = append(f.updates, changes)
	return f.guilds[guildID], nil
}

func (f *fakeAPI) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GuildRoles", guildID); err != nil {
		return nil, err
	}
	return append([]*discordgo.Role(nil), f.roles[guildID]...), nil
}

func (f *fakeAPI) CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	f.mu.Lock()
	err := f.enter("CreateRole", params.Name)
	var role *discordgo.Role
	if err == nil {
		role = &discordgo.Role{ID: f.newID(), Name: params.Name, Position: 1}
		f.roles[guildID] = append(f.roles[guildID], role)
		f.createdRoles = append(f.createdRoles, params)
		f.createRoleHits++
	}
	hook, hits := f.onCreateRole, f.createRoleHits
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(hits)
	}
	return role, nil
}

func (f *fakeAPI) DeleteRole(ctx context.Context, guildID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteRole", roleID); err != nil {
		return err
	}
	roles := f.roles[guildID][:0]
	for _, r := range f.roles[guildID] {
		if r.ID != roleID {
			roles = append(roles, r)
		}
	}
	f.roles[guildID] = roles
	return nil
}

func (f *fakeAPI) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GuildChannels", guildID); err != nil {
		return nil, err
	}
	return append([]*discordgo.Channel(nil), f.channels[guildID]...), nil
}

func (f *fakeAPI) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateChannel", data.Name); err != nil {
		return nil, err
	}
	ch := &discordgo.Channel{ID: f.newID(), GuildID: guildID, Name: data.Name, Type: data.Type,
		Position: data.Position, ParentID: data.ParentID}
	f.channels[guildID] = append(f.channels[guildID], ch)
	f.createdChans = append(f.createdChans, data)
	return ch, nil
}

func (f *fakeAPI) DeleteChannel(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteChannel", channelID); err != nil {
		return err
	}
	for gid, chans := range f.channels {
		kept := chans[:0]
		for _, c := range chans {
			if c.ID != channelID {
				kept = append(kept, c)
			}
		}
		f.channels[gid] = kept
	}
	return nil
}

func (f *fakeAPI) GuildEmojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GuildEmojis", guildID); err != nil {
		return nil, err
	}
	return append([]*discordgo.Emoji(nil), f.emojis[guildID]...), nil
}

func (f *fakeAPI) CreateEmoji(ctx context.Context, guildID string, params *discordgo.EmojiParams) (*discordgo.Emoji, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateEmoji", params.Name); err != nil {
		return nil, err
	}
	f.createdEmojis = append(f.createdEmojis, params)
	e := &discordgo.Emoji{ID: f.newID(), Name: params.Name}
	f.emojis[guildID] = append(f.emojis[guildID], e)
	return e, nil
}

func (f *fakeAPI) DeleteEmoji(ctx context.Context, guildID, emojiID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("DeleteEmoji", emojiID)
}

func (f *fakeAPI) ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ChannelWebhooks", channelID); err != nil {
		return nil, err
	}
	return f.webhooks[channelID], nil
}

func (f *fakeAPI) CreateWebhook(ctx context.Context, channelID, name, avatar string) (*discordgo.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateWebhook", name); err != nil {
		return nil, err
	}
	f.createdHooks = append(f.createdHooks, fmt.Sprintf("%s|%s|%s", channelID, name, avatar))
	return &discordgo.Webhook{ID: f.newID(), Name: name, ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ChannelMessages", channelID); err != nil {
		return nil, err
	}
	f.messageLimits = append(f.messageLimits, limit)
	msgs := f.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]*discordgo.Message(nil), msgs...), nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SendMessage", channelID); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: content})
	return &discordgo.Message{ID: f.newID(), ChannelID: channelID, Content: content}, nil
}

func (f *fakeAPI) FetchAsset(ctx context.Context, assetPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FetchAsset", assetPath); err != nil {
		return "", err
	}
	if data, ok := f.assets[assetPath]; ok {
		return data, nil
	}
	return "data:image/png;base64,eA==", nil
}

// recordingSink captures job events.
type recordingSink struct {
	mu        sync.Mutex
	progress  []float64
	messages  []string
	logs      []string
	errors    []string
	completed int
	success   bool
	final     domain.Stats
}

func (s *recordingSink) OnProgress(jobID, message string, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, percent)
	s.messages = append(s.messages, message)
}

func (s *recordingSink) OnLog(jobID, message string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, message)
}

func (s *recordingSink) OnError(jobID, message string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
}

func (s *recordingSink) OnComplete(jobID string, success bool, stats domain.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	s.success = success
	s.final = stats
}

// sleepRecorder replaces real waits.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
}

func (r *sleepRecorder) total(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func newTestJob(api *fakeAPI, opts domain.CloneOptions) (*Job, *recordingSink, *sleepRecorder) {
	sink := &recordingSink{}
	sleeper := &sleepRecorder{}
	job := New(Config{
		ID:            "job-1",
		SourceGuildID: sourceGuild,
		TargetGuildID: targetGuild,
		Options:       opts,
	}, api, sink, WithSleep(sleeper.sleep))
	return job, sink, sleeper
}
