package access

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
)

var Module = fx.Module("access", fx.Provide(NewEnforcer))

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent:
		return true
	}
	return false
}

// Resources
const (
	Leads   = "leads"
	Targets = "targets"
	Users   = "users"
	Teams   = "teams"
	Reports = "reports"
	Audit   = "audit"
)

// Actions
const (
	Create = "create"
	Read   = "read"
	Update = "update"
	Delete = "delete"
	Assign = "assign"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

var permissions = map[Role]map[string][]string{
	RoleAdmin: {
		Leads:   {Create, Read, Update, Delete, Assign},
		Targets: {Create, Read, Update, Delete},
		Users:   {Create, Read, Update, Delete},
		Teams:   {Create, Read, Update, Delete},
		Reports: {Read},
		Audit:   {Read},
	},
	RoleManager: {
		Leads:   {Create, Read, Update, Assign},
		Targets: {Create, Read, Update},
		Users:   {Create, Read, Update, Delete},
		Teams:   {Create, Read, Update, Delete},
		Reports: {Read},
	},
	RoleAgent: {
		Leads:   {Create, Read, Update},
		Targets: {Read},
	},
}

type Enforcer interface {
	Can(role Role, resource, action string) bool
}

type casbinEnforcer struct {
	e *casbin.Enforcer
}

func NewEnforcer() (Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	var rules [][]string
	for role, resources := range permissions {
		for resource, actions := range resources {
			for _, action := range actions {
				rules = append(rules, []string{string(role), resource, action})
			}
		}
	}

	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("load rbac policy: %w", err)
	}

	return &casbinEnforcer{e: e}, nil
}

func (c *casbinEnforcer) Can(role Role, resource, action string) bool {
	ok, err := c.e.Enforce(string(role), resource, action)
	return err == nil && ok
}
