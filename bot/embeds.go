package bot

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"rolegate/entity"
)

const (
	colorGreen  = 0x00FF00
	colorBlue   = 0x0099FF
	colorOrange = 0xFF9900
)

func createdEmbed(name, code, roleID, channelID string, maxUses, maxAge int) *discordgo.MessageEmbed {
	uses := "Unlimited"
	if maxUses > 0 {
		uses = strconv.Itoa(maxUses)
	}
	expires := "Never"
	if maxAge > 0 {
		expires = fmt.Sprintf("<t:%d:R>", time.Now().Add(time.Duration(maxAge)*time.Second).Unix())
	}
	return &discordgo.MessageEmbed{
		Title: "Tracked Invite Created",
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Name", Value: name, Inline: true},
			{Name: "Role", Value: fmt.Sprintf("<@&%s>", roleID), Inline: true},
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", channelID), Inline: true},
			{Name: "Invite Link", Value: "https://discord.gg/" + code},
			{Name: "Max Uses", Value: uses, Inline: true},
			{Name: "Expires", Value: expires, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func listEmbed(invites []entity.InviteRecord) *discordgo.MessageEmbed {
	description := ""
	for _, invite := range invites {
		description += fmt.Sprintf("**%s**\n", invite.Name)
		description += fmt.Sprintf("• Code: `%s`\n", invite.Code)
		description += fmt.Sprintf("• Role: <@&%s>\n", invite.RoleID)
		description += fmt.Sprintf("• Channel: <#%s>\n", invite.ChannelID)
		description += fmt.Sprintf("• Uses: %d\n", invite.Uses)
		description += fmt.Sprintf("• Creator: <@%s>\n", invite.CreatedBy)
		description += fmt.Sprintf("• Created: <t:%d:R>\n\n", invite.CreatedAt.Unix())
	}
	return &discordgo.MessageEmbed{
		Title:       "Tracked Invites",
		Color:       colorBlue,
		Description: description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func statsEmbed(stats entity.InviteStats, active int, invites []entity.InviteRecord) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Invite Statistics",
		Color: colorOrange,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Tracked Invites", Value: strconv.Itoa(stats.TotalInvites), Inline: true},
			{Name: "Active Invites", Value: strconv.Itoa(active), Inline: true},
			{Name: "Total Uses", Value: strconv.Itoa(stats.TotalUses), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	top := make([]entity.InviteRecord, len(invites))
	copy(top, invites)
	sort.SliceStable(top, func(a, b int) bool { return top[a].Uses > top[b].Uses })
	if len(top) > 5 {
		top = top[:5]
	}
	if len(top) > 0 {
		text := ""
		for index, invite := range top {
			text += fmt.Sprintf("%d. **%s** - %d uses\n", index+1, invite.Name, invite.Uses)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Top 5 Most Used Invites", Value: text,
		})
	}
	return embed
}
