package entity

// RoleMapping associates an invite code with the role granted to members who
// join through it. Mappings live independently from InviteRecords: deleting
// one does not delete the other.
type RoleMapping struct {
	InviteCode string `json:"invite_code" bson:"invite_code"`
	RoleID     string `json:"role_id" bson:"role_id"`
}

// Role is the subset of a platform role the assignment path needs.
// Position is the hierarchy slot; a bot may only grant roles strictly below
// its own highest role.
type Role struct {
	ID       string
	Name     string
	Position int
}
