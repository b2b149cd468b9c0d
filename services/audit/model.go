package audit

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionLeadCreated       Action = "LEAD_CREATED"
	ActionLeadUpdated       Action = "LEAD_UPDATED"
	ActionLeadSold          Action = "LEAD_SOLD"
	ActionLeadStatusChanged Action = "LEAD_STATUS_CHANGED"
	ActionLeadDeleted       Action = "LEAD_DELETED"
	ActionTargetCreated     Action = "TARGET_CREATED"
	ActionTargetUpdated     Action = "TARGET_UPDATED"
	ActionTargetDeleted     Action = "TARGET_DELETED"
	ActionTeamCreated       Action = "TEAM_CREATED"
	ActionTeamUpdated       Action = "TEAM_UPDATED"
	ActionTeamDeleted       Action = "TEAM_DELETED"
	ActionUserLogin         Action = "USER_LOGIN"
	ActionUserLogout        Action = "USER_LOGOUT"
	ActionSystemError       Action = "SYSTEM_ERROR"
)

type EntityType string

const (
	EntityLead   EntityType = "Lead"
	EntityTarget EntityType = "Target"
	EntityUser   EntityType = "User"
	EntityTeam   EntityType = "Team"
	EntitySystem EntityType = "System"
)

// EntityType maps every action to the entity it is recorded against. Unknown
// actions are an error so a new action cannot be written without a mapping.
func (a Action) EntityType() (EntityType, error) {
	switch a {
	case ActionLeadCreated, ActionLeadUpdated, ActionLeadSold, ActionLeadStatusChanged, ActionLeadDeleted:
		return EntityLead, nil
	case ActionTargetCreated, ActionTargetUpdated, ActionTargetDeleted:
		return EntityTarget, nil
	case ActionTeamCreated, ActionTeamUpdated, ActionTeamDeleted:
		return EntityTeam, nil
	case ActionUserLogin, ActionUserLogout:
		return EntityUser, nil
	case ActionSystemError:
		return EntitySystem, nil
	default:
		return "", fmt.Errorf("unknown audit action %q", string(a))
	}
}

func (e EntityType) Valid() bool {
	switch e {
	case EntityLead, EntityTarget, EntityUser, EntityTeam, EntitySystem:
		return true
	}
	return false
}

// AuditLog rows are append-only.
type AuditLog struct {
	ID         snowflake.ID   `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Action     Action         `gorm:"column:action;size:64;not null;index:idx_audit_logs_action_ts,priority:1" json:"action"`
	EntityType EntityType     `gorm:"column:entity_type;size:32;not null;index:idx_audit_logs_entity_ts,priority:1" json:"entityType"`
	EntityID   string         `gorm:"column:entity_id;size:64;not null;index:idx_audit_logs_entity_ts,priority:2" json:"entityId"`
	UserID     snowflake.ID   `gorm:"column:user_id;not null;index:idx_audit_logs_user_ts,priority:1" json:"userId"`
	Details    datatypes.JSON `gorm:"column:details" json:"details"`
	Timestamp  time.Time      `gorm:"column:timestamp;not null;index:idx_audit_logs_entity_ts,priority:3;index:idx_audit_logs_user_ts,priority:2;index:idx_audit_logs_action_ts,priority:2" json:"timestamp"`
	IPAddress  *string        `gorm:"column:ip_address;size:64" json:"ipAddress"`
	UserAgent  *string        `gorm:"column:user_agent;size:512" json:"userAgent"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Event is one audit entry to append.
type Event struct {
	Action   Action
	EntityID string
	UserID   snowflake.ID
	Details  any
}

type ListRequest struct {
	EntityType string `form:"entityType"`
	Action     string `form:"action"`
	EntityID   string `form:"entityId"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

// ArchivePayload is the body of the audit:archive task.
type ArchivePayload struct {
	AuditLogID string `json:"auditLogId"`
}
