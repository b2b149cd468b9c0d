package team

import (
	"context"
	"errors"
	"strings"

	"salesdesk/pkg/access"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/services/audit"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errDuplicateName = errutil.Conflict("Team with this name already exists", nil)
	errTeamNotFound  = errutil.NotFound("Team not found", nil)
	errForbidden     = errutil.Forbidden("Forbidden", nil)
)

// MemberDirectory resolves which user ids belong to active users.
type MemberDirectory interface {
	ActiveUserIDs(ctx context.Context, ids []snowflake.ID) ([]snowflake.ID, error)
}

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	teams   repository.Repository[Team]
	members repository.Repository[Member]
	users   MemberDirectory
	audit   audit.Recorder
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Users MemberDirectory
	Audit audit.Recorder
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		teams:   repository.ProvideStore[Team](p.DB),
		members: repository.ProvideStore[Member](p.DB),
		users:   p.Users,
		audit:   p.Audit,
	}
}

// scope limits managers to the teams they manage. Agents have no access.
func scope(by *access.Principal) (*Team, error) {
	switch by.Role {
	case access.RoleAdmin:
		return &Team{}, nil
	case access.RoleManager:
		return &Team{ManagerID: by.UserID}, nil
	default:
		return nil, errForbidden
	}
}

func canManage(by *access.Principal, t *Team) bool {
	return by.Role == access.RoleAdmin || (by.Role == access.RoleManager && t.ManagerID == by.UserID)
}

func parseIDs(field string, raw []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	seen := make(map[snowflake.ID]bool, len(raw))
	for _, r := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(r))
		if err != nil || id == 0 {
			return nil, errutil.ValidationFailed("invalid team", err,
				errutil.WithDetails(errutil.Detail{Field: field, Message: "Invalid user id " + r}))
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// resolveManager defaults to the caller. Managers can only lead their own teams.
func resolveManager(by *access.Principal, raw string) (snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return by.UserID, nil
	}
	ids, err := parseIDs("manager", []string{raw})
	if err != nil {
		return 0, err
	}
	if by.Role == access.RoleManager && ids[0] != by.UserID {
		return 0, errForbidden
	}
	return ids[0], nil
}

// requireActive fails with the ids that do not belong to active users.
func (s *Service) requireActive(ctx context.Context, field string, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.users.ActiveUserIDs(ctx, ids)
	if err != nil {
		return err
	}
	ok := make(map[snowflake.ID]bool, len(found))
	for _, id := range found {
		ok[id] = true
	}
	var details []errutil.Detail
	for _, id := range ids {
		if !ok[id] {
			details = append(details, errutil.Detail{Field: field, Message: "Unknown or inactive user " + id.String()})
		}
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid team", nil, errutil.WithDetails(details...))
	}
	return nil
}

func attachMembers(ctx context.Context, repo repository.Repository[Member], teams ...*Team) error {
	if len(teams) == 0 {
		return nil
	}
	byID := make(map[snowflake.ID]*Team, len(teams))
	values := make([]any, 0, len(teams))
	for _, t := range teams {
		t.Members = []snowflake.ID{}
		byID[t.ID] = t
		values = append(values, t.ID)
	}

	members, err := repo.Find(ctx, nil,
		option.ApplyOperator(option.Condition{Field: "team_id", Operator: option.IN, Value: values}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}),
	)
	if err != nil {
		zap.L().Error("failed to load team members", zap.Error(err))
		return err
	}
	for _, m := range members {
		byID[m.TeamID].Members = append(byID[m.TeamID].Members, m.UserID)
	}
	return nil
}

// setMembers replaces the members of teamID. Users already in another team
// move to this one.
func setMembers(tx *gorm.DB, teamID snowflake.ID, ids []snowflake.ID) error {
	if err := tx.Where("team_id = ?", teamID).Delete(&Member{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("user_id IN ?", ids).Delete(&Member{}).Error; err != nil {
		return err
	}
	rows := make([]*Member, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, &Member{TeamID: teamID, UserID: id})
	}
	return tx.Create(&rows).Error
}

func diff(before, after []snowflake.ID) (added, removed []snowflake.ID) {
	old := make(map[snowflake.ID]bool, len(before))
	for _, id := range before {
		old[id] = true
	}
	next := make(map[snowflake.ID]bool, len(after))
	for _, id := range after {
		next[id] = true
		if !old[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !next[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func (s *Service) List(ctx context.Context, by *access.Principal) ([]*Team, error) {
	query, err := scope(by)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
	)
	if err != nil {
		zap.L().Error("failed to list teams", zap.Error(err))
		return nil, err
	}
	if err := attachMembers(ctx, s.members, teams...); err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *Service) Get(ctx context.Context, by *access.Principal, id snowflake.ID) (*Team, error) {
	t, err := s.teams.FindOne(ctx, &Team{ID: id})
	if err != nil {
		zap.L().Error("failed to get team", zap.Error(err))
		return nil, err
	}
	if t == nil {
		return nil, errTeamNotFound
	}
	if !canManage(by, t) {
		return nil, errForbidden
	}
	if err := attachMembers(ctx, s.members, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, by *access.Principal, req CreateTeamRequest) (*Team, error) {
	if _, err := scope(by); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errutil.ValidationFailed("invalid team", nil,
			errutil.WithDetails(errutil.Detail{Field: "name", Message: "Team name is required"}))
	}
	managerID, err := resolveManager(by, req.ManagerID)
	if err != nil {
		return nil, err
	}
	members, err := parseIDs("members", req.Members)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, "manager", []snowflake.ID{managerID}); err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, "members", members); err != nil {
		return nil, err
	}

	t := &Team{
		ID:          s.node.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		ManagerID:   managerID,
		IsActive:    true,
		CreatedBy:   by.UserID,
		Members:     members,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.teams.WithTrx(tx)

		existing, err := repo.FindOne(ctx, &Team{Name: name})
		if err != nil {
			return err
		}
		if existing != nil {
			return errDuplicateName
		}
		if err := repo.Create(ctx, t); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateName
			}
			return err
		}
		if err := setMembers(tx, t.ID, members); err != nil {
			return err
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionTeamCreated,
			EntityID: t.ID.String(),
			UserID:   by.UserID,
			Details:  map[string]any{"name": t.Name, "manager": t.ManagerID, "members": members},
		})
		return nil
	}); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, by *access.Principal, id snowflake.ID, req UpdateTeamRequest) (*Team, error) {
	if _, err := scope(by); err != nil {
		return nil, err
	}

	var members []snowflake.ID
	if req.Members != nil {
		ids, err := parseIDs("members", *req.Members)
		if err != nil {
			return nil, err
		}
		if err := s.requireActive(ctx, "members", ids); err != nil {
			return nil, err
		}
		members = ids
	}
	var managerID snowflake.ID
	if req.ManagerID != nil {
		mid, err := resolveManager(by, *req.ManagerID)
		if err != nil {
			return nil, err
		}
		if err := s.requireActive(ctx, "manager", []snowflake.ID{mid}); err != nil {
			return nil, err
		}
		managerID = mid
	}

	var updated *Team
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.teams.WithTrx(tx)

		t, err := repo.FindOne(ctx, &Team{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errTeamNotFound
		}
		if !canManage(by, t) {
			return errForbidden
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return errutil.ValidationFailed("invalid team", nil,
					errutil.WithDetails(errutil.Detail{Field: "name", Message: "Team name is required"}))
			}
			if name != t.Name {
				clash, err := repo.FindOne(ctx, &Team{Name: name})
				if err != nil {
					return err
				}
				if clash != nil {
					return errDuplicateName
				}
			}
			t.Name = name
		}
		if req.Description != nil {
			t.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			t.IsActive = *req.IsActive
		}
		if req.ManagerID != nil {
			t.ManagerID = managerID
		}

		if err := repo.Update(ctx, t.ID, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"is_active":   t.IsActive,
			"manager_id":  t.ManagerID,
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateName
			}
			return err
		}

		if err := attachMembers(ctx, s.members.WithTrx(tx), t); err != nil {
			return err
		}
		details := map[string]any{"name": t.Name, "isActive": t.IsActive}
		if req.Members != nil {
			added, removed := diff(t.Members, members)
			if err := setMembers(tx, t.ID, members); err != nil {
				return err
			}
			t.Members = members
			details["added"] = added
			details["removed"] = removed
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionTeamUpdated,
			EntityID: t.ID.String(),
			UserID:   by.UserID,
			Details:  details,
		})
		updated = t
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, by *access.Principal, id snowflake.ID) error {
	if _, err := scope(by); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.teams.WithTrx(tx)

		t, err := repo.FindOne(ctx, &Team{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errTeamNotFound
		}
		if !canManage(by, t) {
			return errForbidden
		}

		if err := tx.Where("team_id = ?", t.ID).Delete(&Member{}).Error; err != nil {
			return err
		}
		if _, err := repo.Delete(ctx, t.ID); err != nil {
			return err
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionTeamDeleted,
			EntityID: t.ID.String(),
			UserID:   by.UserID,
			Details:  map[string]any{"name": t.Name},
		})
		return nil
	})
}

func (s *Service) Stats(ctx context.Context, by *access.Principal) (*Stats, error) {
	query, err := scope(by)
	if err != nil {
		return nil, err
	}

	var stats Stats
	if stats.TotalTeams, err = s.teams.Count(ctx, query); err != nil {
		return nil, err
	}
	active := *query
	active.IsActive = true
	if stats.ActiveTeams, err = s.teams.Count(ctx, &active); err != nil {
		return nil, err
	}

	members := s.db.WithContext(ctx).Model(&Member{}).
		Joins("JOIN teams ON teams.id = team_members.team_id")
	if query.ManagerID != 0 {
		members = members.Where("teams.manager_id = ?", query.ManagerID)
	}
	if err := members.Count(&stats.TotalMembers).Error; err != nil {
		zap.L().Error("failed to count team members", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}
