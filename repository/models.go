package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileModel is the Bun model for profile records. UID is the identifier
// assigned by the identity platform; ID is derived from it.
type ProfileModel struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UID         string     `bun:"uid,notnull,unique" json:"uid"`
	DisplayName string     `bun:"display_name" json:"display_name,omitempty"`
	PhotoURL    string     `bun:"photo_url" json:"photo_url,omitempty"`
	PhoneNumber string     `bun:"phone_number" json:"phone_number,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// OrganizationModel is the Bun model for organization records.
type OrganizationModel struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OrgID     string     `bun:"org_id,notnull,unique" json:"org_id"`
	Name      string     `bun:"name" json:"name,omitempty"`
	LogoURL   string     `bun:"logo_url" json:"logo_url,omitempty"`
	Timezone  string     `bun:"timezone" json:"timezone,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
