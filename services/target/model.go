package target

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Target is the revenue goal for one calendar day. Date holds midnight of
// that day in the platform timezone, stored as UTC.
type Target struct {
	ID          snowflake.ID    `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Date        time.Time       `gorm:"column:date;not null;uniqueIndex:idx_targets_date" json:"date"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null" json:"amount"`
	Achieved    decimal.Decimal `gorm:"column:achieved;type:numeric(20,2);not null" json:"achieved"`
	Description string          `gorm:"column:description;size:500" json:"description"`
	AutoCreated bool            `gorm:"column:auto_created;not null;default:false" json:"autoCreated"`
	CreatedBy   snowflake.ID    `gorm:"column:created_by" json:"createdBy"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Target) TableName() string {
	return "targets"
}

// Capacity is the amount still needed to complete the target, never negative.
func (t *Target) Capacity() decimal.Decimal {
	c := t.Amount.Sub(t.Achieved)
	if c.IsNegative() {
		return decimal.Zero
	}
	return c
}

func (t *Target) IsComplete() bool {
	return t.Achieved.GreaterThanOrEqual(t.Amount)
}

// Allocation records how much profit one target received.
type Allocation struct {
	TargetID         snowflake.ID    `json:"targetId"`
	TargetDate       time.Time       `json:"targetDate"`
	Allocated        decimal.Decimal `json:"allocated"`
	PreviousAchieved decimal.Decimal `json:"previousAchieved"`
	NewAchieved      decimal.Decimal `json:"newAchieved"`
	TargetAmount     decimal.Decimal `json:"targetAmount"`
	IsComplete       bool            `json:"isComplete"`
	IsNewTarget      bool            `json:"isNewTarget,omitempty"`
	IsExistingTarget bool            `json:"isExistingTarget,omitempty"`
}

type AllocationResult struct {
	UpdatedTargets []Allocation    `json:"updatedTargets"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
}

// Removal records how much achieved value was drained from one target.
type Removal struct {
	TargetID         snowflake.ID    `json:"targetId"`
	TargetDate       time.Time       `json:"targetDate"`
	Removed          decimal.Decimal `json:"removed"`
	PreviousAchieved decimal.Decimal `json:"previousAchieved"`
	NewAchieved      decimal.Decimal `json:"newAchieved"`
}

type ReversalResult struct {
	UpdatedTargets    []Removal       `json:"updatedTargets"`
	TotalRemoved      decimal.Decimal `json:"totalRemoved"`
	RemainingToRemove decimal.Decimal `json:"remainingToRemove"`
}

type Summary struct {
	Total      decimal.Decimal `json:"total"`
	Achieved   decimal.Decimal `json:"achieved"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage int64           `json:"percentage"`
}

type CreateTargetRequest struct {
	Date        string           `json:"date" binding:"required"`
	Amount      decimal.Decimal  `json:"amount"`
	Achieved    *decimal.Decimal `json:"achieved"`
	Description string           `json:"description"`
}

type UpdateTargetRequest struct {
	Date        *string          `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Achieved    *decimal.Decimal `json:"achieved"`
	Description *string          `json:"description"`
}
