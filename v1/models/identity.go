package models

// Identity represents a login principal. Each identity links to exactly one
// tenant entity of the matching role; EntityID is that entity's primary key.
// For company and technician roles the entity primary key is assigned from the
// identity id itself, so the two values are equal by construction.
type Identity struct {
	IdentityID string `gorm:"primarykey;column:identity_id" json:"identityId"`
	Email      string `gorm:"column:email;not null;unique" json:"email"`
	Role       Role   `gorm:"column:role;not null" json:"role"`
	EntityID   string `gorm:"column:entity_id;not null;index" json:"entityId"`
	BaseModel
}

// TableName sets the table name for GORM
func (Identity) TableName() string {
	return "identities"
}

// ResolvedIdentity is the output of identity resolution: the tenant role and
// the entity id every ownership predicate keys on. It is computed per call and
// never cached across requests.
type ResolvedIdentity struct {
	IdentityID string `json:"identityId"`
	Role       Role   `json:"role"`
	EntityID   string `json:"entityId"`
}

// IsAdmin reports whether the identity carries the platform-admin role
func (ri ResolvedIdentity) IsAdmin() bool {
	return ri.Role == RoleAdmin
}
