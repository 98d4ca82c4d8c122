// Package auth provides permission-based access control for change
// operations.
package auth

// Permission defines an action that can be controlled
type Permission string

// Standard permissions
const (
	PermPortConfigure Permission = "port.configure"
	PermPortForce     Permission = "port.force" // configure over active traffic
	PermPortRollback  Permission = "port.rollback"

	PermHistoryView Permission = "history.view"
	PermAuditView   Permission = "audit.view"

	PermAll Permission = "all" // Superuser - allows everything
)

// PermissionCategory groups related permissions
type PermissionCategory struct {
	Name        string
	Description string
	Permissions []Permission
}

// StandardCategories defines standard permission categories
var StandardCategories = []PermissionCategory{
	{
		Name:        "port",
		Description: "Interface changes and rollback",
		Permissions: []Permission{PermPortConfigure, PermPortForce, PermPortRollback},
	},
	{
		Name:        "history",
		Description: "Change history access",
		Permissions: []Permission{PermHistoryView},
	},
	{
		Name:        "audit",
		Description: "Audit log access",
		Permissions: []Permission{PermAuditView},
	},
}

// Context provides context for permission checks
type Context struct {
	Device    string
	Interface string
}

// NewContext creates a new permission context
func NewContext() *Context {
	return &Context{}
}

// WithDevice sets the device context
func (c *Context) WithDevice(device string) *Context {
	c.Device = device
	return c
}

// WithInterface sets the interface context
func (c *Context) WithInterface(iface string) *Context {
	c.Interface = iface
	return c
}

// IsReadOnly returns true if the permission is read-only
func (p Permission) IsReadOnly() bool {
	switch p {
	case PermHistoryView, PermAuditView:
		return true
	}
	return false
}

// IsWriteOperation returns true if the permission involves modification
func (p Permission) IsWriteOperation() bool {
	return !p.IsReadOnly()
}
