package cloner

import "github.com/bwmarrin/discordgo"

// translateOverwrites rewrites role overwrites to target role IDs. Overwrites
// for unmapped roles are dropped; member overwrites pass through unchanged.
// The @everyone role has the guild's own ID, so sourceGuild maps to targetGuild.
func translateOverwrites(in []*discordgo.PermissionOverwrite, m *Mapper, sourceGuild, targetGuild string) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		if ow == nil {
			continue
		}
		switch ow.Type {
		case discordgo.PermissionOverwriteTypeRole:
			id, ok := m.Role(ow.ID)
			if !ok && ow.ID == sourceGuild && sourceGuild != "" {
				id, ok = targetGuild, true
			}
			if !ok {
				continue
			}
			cp := *ow
			cp.ID = id
			out = append(out, &cp)
		case discordgo.PermissionOverwriteTypeMember:
			out = append(out, ow)
		}
	}
	return out
}
