package report

import (
	"time"

	"salesdesk/services/lead"
	"salesdesk/services/target"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	ActivityLeadCreated = "lead_created"

	activityLimit = 10
)

type DashboardStats struct {
	TotalLeads     int64           `json:"totalLeads"`
	NewLeads       int64           `json:"newLeads"`
	SoldLeads      int64           `json:"soldLeads"`
	TargetProgress int64           `json:"targetProgress"`
	Target         *target.Summary `json:"target"`
}

type Activity struct {
	ID          snowflake.ID `json:"id"`
	Type        string       `json:"type"`
	Description string       `json:"description"`
	Time        string       `json:"time"`
	CreatedAt   time.Time    `json:"createdAt"`
	User        snowflake.ID `json:"user"`
}

type Request struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Summary struct {
	TotalLeads     int64           `json:"totalLeads"`
	TotalSales     int64           `json:"totalSales"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	ConversionRate float64         `json:"conversionRate"`
}

type Report struct {
	Period  Period           `json:"period"`
	Summary Summary          `json:"summary"`
	Leads   []*lead.Lead     `json:"leads"`
	Sales   []*lead.Lead     `json:"sales"`
	Targets []*target.Target `json:"targets"`
}
