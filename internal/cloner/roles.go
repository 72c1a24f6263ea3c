package cloner

import (
	"context"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/sumire/guildcloner/internal/domain"
)

// cloneableRole excludes integration-managed roles and @everyone.
func cloneableRole(r *discordgo.Role, guildID string) bool {
	return r != nil && !r.Managed && r.Name != "@everyone" && r.ID != guildID
}

func filterRoles(roles []*discordgo.Role, guildID string) []*discordgo.Role {
	out := make([]*discordgo.Role, 0, len(roles))
	for _, r := range roles {
		if cloneableRole(r, guildID) {
			out = append(out, r)
		}
	}
	return out
}

// sortRolesForCreation orders roles highest first. New roles land at the
// bottom of the hierarchy, so creating top-down reproduces the source order.
func sortRolesForCreation(roles []*discordgo.Role) {
	sort.SliceStable(roles, func(a, b int) bool {
		return roles[a].Position > roles[b].Position
	})
}

func roleParams(r *discordgo.Role) *discordgo.RoleParams {
	color := r.Color
	hoist := r.Hoist
	mentionable := r.Mentionable
	perms := r.Permissions
	return &discordgo.RoleParams{
		Name:        r.Name,
		Color:       &color,
		Hoist:       &hoist,
		Permissions: &perms,
		Mentionable: &mentionable,
	}
}

func (j *Job) cloneRoles(ctx context.Context) error {
	j.logf("Fetching roles from both servers...")
	source, target, err := fetchPair(ctx, j, "roles", j.api.GuildRoles)
	if err != nil {
		return err
	}

	create := filterRoles(source, j.sourceID)
	sortRolesForCreation(create)
	stale := filterRoles(target, j.targetID)
	j.logf("Found %d roles to clone (%d skipped) and %d roles to delete",
		len(create), len(source)-len(create), len(stale))

	describe := func(r *discordgo.Role) string { return quoted("role", r.Name) }

	if _, err := deleteAll(ctx, j, stale, j.delays.RoleDelete, describe,
		func(ctx context.Context, r *discordgo.Role) error {
			return j.api.DeleteRole(ctx, j.targetID, r.ID)
		}); err != nil {
		return err
	}

	n, err := createAll(ctx, j, create, retrySameItem, j.delays.RoleCreate, describe,
		func(ctx context.Context, r *discordgo.Role) (*discordgo.Role, error) {
			return j.api.CreateRole(ctx, j.targetID, roleParams(r))
		},
		func(src, created *discordgo.Role) {
			j.maps.RecordRole(src.ID, created.ID)
			j.stats.update(func(s *domain.Stats) { s.RolesCloned++ })
		})
	if err != nil {
		return err
	}
	j.logf("Created %d/%d roles", n, len(create))
	return nil
}
