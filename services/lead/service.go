package lead

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/db/pagination"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/pkg/sequence"
	"salesdesk/services/audit"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const unassigned = "unassigned"

var errLeadNotFound = errutil.NotFound("Lead not found", nil)

// TeamDirectory resolves the agents a manager is responsible for.
type TeamDirectory interface {
	TeamMemberIDs(ctx context.Context, managerID snowflake.ID) ([]snowflake.ID, error)
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	leads    repository.Repository[Lead]
	seq      sequence.Generator
	team     TeamDirectory
	audit    audit.Recorder
	workflow *Workflow
	now      func() time.Time
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Sequence sequence.Generator
	Team     TeamDirectory
	Audit    audit.Recorder
	Workflow *Workflow
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		leads:    repository.ProvideStore[Lead](p.DB),
		seq:      p.Sequence,
		team:     p.Team,
		audit:    p.Audit,
		workflow: p.Workflow,
		now:      time.Now,
	}
}

type ListResult struct {
	Leads    []*Lead             `json:"leads"`
	PageInfo pagination.PageInfo `json:"pagination"`
}

// VisibleAssignees returns the assignees whose leads the principal may see,
// nil meaning every lead.
func VisibleAssignees(ctx context.Context, team TeamDirectory, by *access.Principal) ([]snowflake.ID, error) {
	switch by.Role {
	case access.RoleAdmin:
		return nil, nil
	case access.RoleManager:
		ids, err := team.TeamMemberIDs(ctx, by.UserID)
		if err != nil {
			return nil, err
		}
		return append(ids, by.UserID), nil
	case access.RoleAgent:
		return []snowflake.ID{by.UserID}, nil
	default:
		return nil, errutil.Forbidden("Forbidden", nil)
	}
}

// AssigneeScope restricts a lead query to ids. A nil ids leaves it open.
func AssigneeScope(ids []snowflake.ID) []option.QueryOption {
	if ids == nil {
		return nil
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	return []option.QueryOption{
		option.ApplyOperator(option.Condition{Field: "assigned_to", Operator: option.IN, Value: values}),
	}
}

func (s *Service) visibleAssignees(ctx context.Context, by *access.Principal) ([]snowflake.ID, error) {
	return VisibleAssignees(ctx, s.team, by)
}

func (s *Service) canSee(ctx context.Context, by *access.Principal, l *Lead) (bool, error) {
	ids, err := s.visibleAssignees(ctx, by)
	if err != nil {
		return false, err
	}
	if ids == nil {
		return true, nil
	}
	if l.AssignedTo == nil {
		return false, nil
	}
	for _, id := range ids {
		if id == *l.AssignedTo {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) List(ctx context.Context, by *access.Principal, req ListRequest) (*ListResult, error) {
	ids, err := s.visibleAssignees(ctx, by)
	if err != nil {
		return nil, err
	}

	query := &Lead{}
	if req.Status != "" {
		status := Status(req.Status)
		if !status.Valid() {
			return nil, errutil.BadRequest("invalid status", nil)
		}
		query.Status = status
	}

	scope := AssigneeScope(ids)

	page := pagination.Pagination{Page: req.Page, Limit: req.Limit}.Normalize()

	total, err := s.leads.Count(ctx, query, scope...)
	if err != nil {
		zap.L().Error("failed to count leads", zap.Error(err))
		return nil, err
	}

	opts := append(scope,
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc", Allow: map[string]bool{"id": true}}),
	)
	opts = append(opts, page.Options()...)

	leads, err := s.leads.Find(ctx, query, opts...)
	if err != nil {
		zap.L().Error("failed to list leads", zap.Error(err))
		return nil, err
	}

	return &ListResult{Leads: leads, PageInfo: pagination.BuildPageInfo(page, total)}, nil
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*Lead, error) {
	if id == 0 {
		return nil, errLeadNotFound
	}
	l, err := s.leads.FindOne(ctx, &Lead{ID: id})
	if err != nil {
		zap.L().Error("failed to get lead", zap.Error(err))
		return nil, err
	}
	if l == nil {
		return nil, errLeadNotFound
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, by *access.Principal, id snowflake.ID) (*Lead, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canSee(ctx, by, l)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errLeadNotFound
	}
	return l, nil
}

func parseAssignee(raw *string) (*snowflake.ID, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" || v == unassigned {
		return nil, true, nil
	}
	id, err := snowflake.ParseString(v)
	if err != nil || id <= 0 {
		return nil, true, errutil.BadRequest("invalid assignedTo", nil)
	}
	return &id, true, nil
}

func validateInput(l *Lead) error {
	var details []errutil.Detail
	if strings.TrimSpace(l.CustomerName) == "" {
		details = append(details, errutil.Detail{Field: "customerName", Message: "Customer name is required"})
	}
	if strings.TrimSpace(l.MobileNumber) == "" {
		details = append(details, errutil.Detail{Field: "mobileNumber", Message: "Mobile number is required"})
	}
	if !l.Status.Valid() {
		details = append(details, errutil.Detail{Field: "status", Message: "Status must be one of new, in-progress, sold, lost"})
	}
	if l.SalePrice != nil && l.SalePrice.IsNegative() {
		details = append(details, errutil.Detail{Field: "salePrice", Message: "Sale price cannot be negative"})
	}
	if l.ProductPrice != nil && l.ProductPrice.IsNegative() {
		details = append(details, errutil.Detail{Field: "productPrice", Message: "Product price cannot be negative"})
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid lead", nil, errutil.WithDetails(details...))
	}
	return nil
}

// apply copies the fields set on in onto l.
func apply(l *Lead, in LeadInput) error {
	if in.CustomerName != nil {
		l.CustomerName = strings.TrimSpace(*in.CustomerName)
	}
	if in.MobileNumber != nil {
		l.MobileNumber = strings.TrimSpace(*in.MobileNumber)
	}
	if in.Email != nil {
		l.Email = strings.TrimSpace(*in.Email)
	}
	if in.ProductName != nil {
		l.ProductName = *in.ProductName
	}
	if in.Source != nil {
		l.Source = *in.Source
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.SalePrice.Set {
		l.SalePrice = in.SalePrice.Value
	}
	if in.ProductPrice.Set {
		l.ProductPrice = in.ProductPrice.Value
	}
	if assignee, set, err := parseAssignee(in.AssignedTo); err != nil {
		return err
	} else if set {
		l.AssignedTo = assignee
	}
	return nil
}

// Create stores a new lead. Agents who do not pick an assignee get the lead
// assigned to themselves.
func (s *Service) Create(ctx context.Context, by *access.Principal, in LeadInput) (*Lead, error) {
	if in.SalePrice.Invalid || in.ProductPrice.Invalid {
		return nil, errutil.ValidationFailed("invalid lead", nil, errutil.WithDetails(errutil.Detail{Field: "price", Message: msgPriceNotNumber}))
	}

	l := &Lead{
		ID:        s.node.Generate(),
		Status:    StatusNew,
		CreatedBy: by.UserID,
	}
	if err := apply(l, in); err != nil {
		return nil, err
	}
	if in.AssignedTo == nil && by.Role == access.RoleAgent {
		self := by.UserID
		l.AssignedTo = &self
	}
	if err := validateInput(l); err != nil {
		return nil, err
	}
	l.ApplyProfitMargin()

	code, err := s.seq.NextLeadCode(ctx)
	if err != nil {
		zap.L().Error("failed to generate lead code", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to generate lead code", err)
	}
	l.Code = code

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.leads.WithTrx(tx)

		exist, err := repo.FindOne(ctx, &Lead{MobileNumber: l.MobileNumber})
		if err != nil {
			return err
		}
		if exist != nil {
			return errDuplicateMobile
		}

		if err := repo.Create(ctx, l); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateMobile
			}
			return err
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionLeadCreated,
			EntityID: l.ID.String(),
			UserID:   by.UserID,
			Details:  map[string]any{"code": l.Code, "customerName": l.CustomerName, "status": l.Status},
		})
		return nil
	}); err != nil {
		if !errors.Is(err, errDuplicateMobile) {
			zap.L().Error("failed to create lead", zap.Error(err))
		}
		return nil, err
	}

	return l, nil
}

// Update applies in to the lead through the status workflow. Agents may only
// update leads assigned to them.
func (s *Service) Update(ctx context.Context, by *access.Principal, id snowflake.ID, in LeadInput) (*WorkflowResult, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if by.Role == access.RoleAgent && (existing.AssignedTo == nil || *existing.AssignedTo != by.UserID) {
		return nil, errutil.Forbidden("Forbidden", nil)
	}

	incoming := *existing
	if err := apply(&incoming, in); err != nil {
		return nil, err
	}
	if in.AssignedTo != nil && by.Role == access.RoleAgent && (incoming.AssignedTo == nil || *incoming.AssignedTo != by.UserID) {
		return nil, errutil.Forbidden("Agents cannot reassign leads", nil)
	}

	sale := PriceOf(incoming.SalePrice)
	product := PriceOf(incoming.ProductPrice)
	sale.Invalid = in.SalePrice.Invalid
	product.Invalid = in.ProductPrice.Invalid

	// a sold lead reports its price rules through the workflow
	if incoming.Status != StatusSold && (sale.Invalid || product.Invalid) {
		return nil, errutil.ValidationFailed("invalid lead", nil, errutil.WithDetails(errutil.Detail{Field: "price", Message: msgPriceNotNumber}))
	}
	if err := validateInput(&incoming); err != nil {
		return nil, err
	}

	return s.workflow.ProcessStatusChange(ctx, StatusChange{
		LeadID:       existing.ID,
		Existing:     existing,
		Incoming:     &incoming,
		ActingUserID: by.UserID,
		SalePrice:    sale,
		ProductPrice: product,
	})
}

func (s *Service) Delete(ctx context.Context, by *access.Principal, id snowflake.ID) error {
	if id == 0 {
		return errLeadNotFound
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.leads.WithTrx(tx)

		l, err := repo.FindOne(ctx, &Lead{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if l == nil {
			return errLeadNotFound
		}

		if _, err := repo.Delete(ctx, id); err != nil {
			zap.L().Error("failed to delete lead", zap.Error(err))
			return err
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionLeadDeleted,
			EntityID: id.String(),
			UserID:   by.UserID,
			Details:  map[string]any{"code": l.Code, "customerName": l.CustomerName, "status": l.Status},
		})
		return nil
	})
}

func (s *Service) AddNote(ctx context.Context, by *access.Principal, id snowflake.ID, req AddNoteRequest) (*Lead, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, errutil.ValidationFailed("invalid note", nil, errutil.WithDetails(errutil.Detail{Field: "content", Message: "Note content is required"}))
	}

	if _, err := s.Get(ctx, by, id); err != nil {
		return nil, err
	}

	var updated *Lead
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.leads.WithTrx(tx)

		l, err := repo.FindOne(ctx, &Lead{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if l == nil {
			return errLeadNotFound
		}

		l.Notes = append(l.Notes, Note{Content: content, CreatedBy: by.UserID, CreatedAt: s.now().UTC()})
		if err := repo.Update(ctx, l.ID, map[string]any{"notes": l.Notes, "version": gorm.Expr("version + 1")}); err != nil {
			return err
		}
		l.Version++

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionLeadUpdated,
			EntityID: l.ID.String(),
			UserID:   by.UserID,
			Details:  map[string]any{"note": content},
		})
		updated = l
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}
