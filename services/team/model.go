package team

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Team struct {
	ID          snowflake.ID   `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Name        string         `gorm:"column:name;size:255;not null;uniqueIndex:idx_teams_name" json:"name"`
	Description string         `gorm:"column:description;size:1000" json:"description"`
	ManagerID   snowflake.ID   `gorm:"column:manager_id;not null;index" json:"managerId"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedBy   snowflake.ID   `gorm:"column:created_by;not null" json:"createdBy"`
	Members     []snowflake.ID `gorm:"-" json:"members"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

func (Team) TableName() string {
	return "teams"
}

// Member places a user in a team. A user is in at most one team.
type Member struct {
	TeamID    snowflake.ID `gorm:"column:team_id;primaryKey;autoIncrement:false;index"`
	UserID    snowflake.ID `gorm:"column:user_id;primaryKey;autoIncrement:false;uniqueIndex:idx_team_members_user"`
	CreatedAt time.Time    `gorm:"column:created_at"`
}

func (Member) TableName() string {
	return "team_members"
}

type CreateTeamRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ManagerID   string   `json:"manager"`
	Members     []string `json:"members"`
}

type UpdateTeamRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	ManagerID   *string   `json:"manager"`
	IsActive    *bool     `json:"isActive"`
	Members     *[]string `json:"members"`
}

type Stats struct {
	TotalTeams   int64 `json:"totalTeams"`
	ActiveTeams  int64 `json:"activeTeams"`
	TotalMembers int64 `json:"totalMembers"`
}
