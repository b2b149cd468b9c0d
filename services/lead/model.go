package lead

import (
	"fmt"
	"time"

	"salesdesk/services/audit"
	"salesdesk/services/target"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusSold       Status = "sold"
	StatusLost       Status = "lost"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusSold, StatusLost:
		return true
	}
	return false
}

type Note struct {
	Content   string       `json:"content"`
	CreatedBy snowflake.ID `json:"createdBy"`
	CreatedAt time.Time    `json:"createdAt"`
}

type Lead struct {
	ID           snowflake.ID              `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Code         string                    `gorm:"column:code;size:32;uniqueIndex:idx_leads_code" json:"code"`
	CustomerName string                    `gorm:"column:customer_name;size:255;not null" json:"customerName"`
	MobileNumber string                    `gorm:"column:mobile_number;size:32;not null;uniqueIndex:idx_leads_mobile" json:"mobileNumber"`
	Email        string                    `gorm:"column:email;size:255" json:"email"`
	ProductName  string                    `gorm:"column:product_name;size:255" json:"productName"`
	Source       string                    `gorm:"column:source;size:100" json:"source"`
	Status       Status                    `gorm:"column:status;size:32;not null;default:new;index" json:"status"`
	SalePrice    *decimal.Decimal          `gorm:"column:sale_price;type:numeric(20,2)" json:"salePrice"`
	ProductPrice *decimal.Decimal          `gorm:"column:product_price;type:numeric(20,2)" json:"productPrice"`
	ProfitMargin decimal.Decimal           `gorm:"column:profit_margin;type:numeric(20,2);not null;default:0" json:"profitMargin"`
	AssignedTo   *snowflake.ID             `gorm:"column:assigned_to;index" json:"assignedTo"`
	CreatedBy    snowflake.ID              `gorm:"column:created_by;not null;index" json:"createdBy"`
	Notes        datatypes.JSONSlice[Note] `gorm:"column:notes" json:"notes"`
	Version      int64                     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt    time.Time                 `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time                 `gorm:"column:updated_at" json:"updatedAt"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.Version == 0 {
		l.Version = 1
	}
	return nil
}

// ApplyProfitMargin keeps ProfitMargin in step with the prices: recomputed
// when both are set, zero when only one is, untouched when neither is.
func (l *Lead) ApplyProfitMargin() {
	switch {
	case l.SalePrice != nil && l.ProductPrice != nil:
		if margin, err := CalculateProfitMargin(l.SalePrice, l.ProductPrice); err == nil {
			l.ProfitMargin = margin
		} else {
			l.ProfitMargin = decimal.Zero
		}
	case l.SalePrice != nil || l.ProductPrice != nil:
		l.ProfitMargin = decimal.Zero
	}
}

// LeadInput carries the writable lead fields. Prices stay raw JSON values so
// the validator can tell a missing price from one that is not a number.
type LeadInput struct {
	CustomerName *string    `json:"customerName"`
	MobileNumber *string    `json:"mobileNumber"`
	Email        *string    `json:"email"`
	ProductName  *string    `json:"productName"`
	Source       *string    `json:"source"`
	Status       *Status    `json:"status"`
	SalePrice    PriceInput `json:"salePrice"`
	ProductPrice PriceInput `json:"productPrice"`
	AssignedTo   *string    `json:"assignedTo"`
}

type AddNoteRequest struct {
	Content string `json:"content" binding:"required"`
}

type ListRequest struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// Transition is the ledger effect of a status change.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionSold
	TransitionUnsold
)

func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionSold:
		return "sold"
	case TransitionUnsold:
		return "unsold"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// StatusChange is one workflow run: the lead as stored and the lead as it
// will be after the update. SalePrice and ProductPrice are the prices as
// submitted, used to validate a sold lead.
type StatusChange struct {
	LeadID       snowflake.ID
	Existing     *Lead
	Incoming     *Lead
	ActingUserID snowflake.ID
	SalePrice    Price
	ProductPrice Price
}

type WorkflowResult struct {
	Success    bool                     `json:"success"`
	Transition string                   `json:"transition"`
	Lead       *Lead                    `json:"lead,omitempty"`
	Allocation *target.AllocationResult `json:"allocation,omitempty"`
	Reversal   *target.ReversalResult   `json:"reversal,omitempty"`
	AuditLog   *audit.AuditLog          `json:"auditLog,omitempty"`
	Errors     []string                 `json:"errors,omitempty"`
}
