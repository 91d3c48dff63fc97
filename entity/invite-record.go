package entity

import "time"

// InviteRecord is the tracked metadata for one invite link within a guild.
// The invite code is the primary key inside a guild; Uses is the only field
// that changes after creation and never decreases.
type InviteRecord struct {
	Code      string    `json:"code" bson:"code" validate:"required"`
	Name      string    `json:"name" bson:"name" validate:"required"`
	RoleID    string    `json:"role_id" bson:"role_id" validate:"required"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	ChannelID string    `json:"channel_id" bson:"channel_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Uses      int       `json:"uses" bson:"uses" validate:"min=0"`
}

// InviteStats summarizes a guild's tracked invites.
// MostUsed is nil when the guild has no records; ties go to the record
// encountered first in store order.
type InviteStats struct {
	TotalInvites int           `json:"total_invites"`
	TotalUses    int           `json:"total_uses"`
	MostUsed     *InviteRecord `json:"most_used,omitempty"`
}

// InviteUsage is one entry of a live invite fetch: an invite code together
// with the use count the platform reports for it.
type InviteUsage struct {
	Code string `json:"code"`
	Uses int    `json:"uses"`
}
