package auth

import (
	"fmt"
	"slices"
	"sort"

	"github.com/newtron-network/portctl/pkg/util"
)

// Policy is the access policy, normally the policy block of the inventory:
//
//	policy:
//	  super_users: [admin]
//	  user_groups:
//	    neteng: [alice, bob]
//	  permissions:
//	    port.configure: [neteng]
//	    port.rollback: [neteng, oncall]
//	  devices:
//	    core-01:
//	      port.configure: [admin]
//
// Device entries override the global permissions for that device. An empty
// policy grants everything.
type Policy struct {
	SuperUsers  []string                       `yaml:"super_users,omitempty" json:"super_users,omitempty"`
	UserGroups  map[string][]string            `yaml:"user_groups,omitempty" json:"user_groups,omitempty"`
	Permissions map[string][]string            `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	Devices     map[string]map[string][]string `yaml:"devices,omitempty" json:"devices,omitempty"`
}

// IsEmpty reports whether the policy defines nothing.
func (p *Policy) IsEmpty() bool {
	return p == nil || (len(p.SuperUsers) == 0 && len(p.Permissions) == 0 && len(p.Devices) == 0)
}

// Checker validates user permissions
type Checker struct {
	policy      *Policy
	currentUser string
}

// NewChecker creates a permission checker for username.
func NewChecker(policy *Policy, username string) *Checker {
	if username == "" {
		username = "unknown"
	}
	return &Checker{policy: policy, currentUser: username}
}

// SetUser overrides the current user (for testing or sudo)
func (c *Checker) SetUser(username string) {
	c.currentUser = username
}

// CurrentUser returns the current username
func (c *Checker) CurrentUser() string {
	return c.currentUser
}

// Check verifies if the current user has a permission
func (c *Checker) Check(permission Permission, ctx *Context) error {
	return c.CheckUser(c.currentUser, permission, ctx)
}

// CheckUser verifies if a specific user has a permission
func (c *Checker) CheckUser(username string, permission Permission, ctx *Context) error {
	if c.policy.IsEmpty() || c.isSuperUser(username) {
		return nil
	}

	// A device entry that names the permission replaces the global rule.
	if ctx != nil && ctx.Device != "" {
		if perms, ok := c.policy.Devices[ctx.Device]; ok {
			if _, named := perms[string(permission)]; named || perms["all"] != nil {
				if c.checkPermissionMap(username, permission, perms) {
					return nil
				}
				return &PermissionError{User: username, Permission: permission, Context: ctx}
			}
		}
	}

	if c.checkPermissionMap(username, permission, c.policy.Permissions) {
		return nil
	}

	return &PermissionError{
		User:       username,
		Permission: permission,
		Context:    ctx,
	}
}

// IsSuperUser returns true if the current user is a superuser
func (c *Checker) IsSuperUser() bool {
	return c.isSuperUser(c.currentUser)
}

func (c *Checker) isSuperUser(username string) bool {
	return c.policy != nil && slices.Contains(c.policy.SuperUsers, username)
}

// checkPermissionMap checks whether username has the given permission in permMap.
// It first checks the "all" wildcard key, then the specific permission key.
func (c *Checker) checkPermissionMap(username string, permission Permission, permMap map[string][]string) bool {
	if groups, ok := permMap["all"]; ok {
		if c.userInGroups(username, groups) {
			return true
		}
	}

	groups, ok := permMap[string(permission)]
	if !ok {
		return false
	}
	return c.userInGroups(username, groups)
}

func (c *Checker) userInGroups(username string, allowedGroups []string) bool {
	for _, group := range allowedGroups {
		if group == username {
			return true
		}
		if slices.Contains(c.policy.UserGroups[group], username) {
			return true
		}
	}
	return false
}

// ListPermissions returns all global permissions the current user has
func (c *Checker) ListPermissions() []Permission {
	return c.ListPermissionsForUser(c.currentUser)
}

// ListPermissionsForUser returns all global permissions a user has, sorted
func (c *Checker) ListPermissionsForUser(username string) []Permission {
	if c.policy.IsEmpty() || c.isSuperUser(username) {
		return []Permission{PermAll}
	}

	var perms []Permission
	for permStr, groups := range c.policy.Permissions {
		if c.userInGroups(username, groups) {
			perms = append(perms, Permission(permStr))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// GetUserGroups returns the groups a user belongs to, sorted
func (c *Checker) GetUserGroups(username string) []string {
	if c.policy == nil {
		return nil
	}
	var groups []string
	for groupName, members := range c.policy.UserGroups {
		if slices.Contains(members, username) {
			groups = append(groups, groupName)
		}
	}
	sort.Strings(groups)
	return groups
}

// PermissionError represents a permission denial
type PermissionError struct {
	User       string
	Permission Permission
	Context    *Context
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied: user '%s' does not have '%s' permission", e.User, e.Permission)
	if e.Context != nil {
		if e.Context.Device != "" {
			msg += fmt.Sprintf(" on device '%s'", e.Context.Device)
		}
		if e.Context.Interface != "" {
			msg += fmt.Sprintf(" interface '%s'", e.Context.Interface)
		}
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return util.ErrPermissionDenied
}
