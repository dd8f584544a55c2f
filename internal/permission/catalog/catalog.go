// Package catalog lists the capability codes the portal understands. The strings are the
// wire format shared by every caller and every group definition.
package catalog

import "strings"

// System-scoped capabilities.
const (
	SystemSuperadmin = "system.superadmin"

	SystemUsersView   = "system.users.view"
	SystemUsersCreate = "system.users.create"
	SystemUsersEdit   = "system.users.edit"
	SystemUsersDelete = "system.users.delete"

	SystemOrganizationsView   = "system.organizations.view"
	SystemOrganizationsCreate = "system.organizations.create"
	SystemOrganizationsEdit   = "system.organizations.edit"
	SystemOrganizationsDelete = "system.organizations.delete"

	SystemGroupsView = "system.groups.view"
	SystemGroupsEdit = "system.groups.edit"

	SystemAuditView = "system.audit.view"
)

// Organization-scoped capabilities.
const (
	OrgPersonView   = "org.person.view"
	OrgPersonCreate = "org.person.create"
	OrgPersonEdit   = "org.person.edit"
	OrgPersonDelete = "org.person.delete"

	OrgDepartmentView   = "org.department.view"
	OrgDepartmentCreate = "org.department.create"
	OrgDepartmentEdit   = "org.department.edit"
	OrgDepartmentDelete = "org.department.delete"

	OrgServiceView   = "org.service.view"
	OrgServiceCreate = "org.service.create"
	OrgServiceEdit   = "org.service.edit"
	OrgServiceDelete = "org.service.delete"

	OrgNewsView    = "org.news.view"
	OrgNewsCreate  = "org.news.create"
	OrgNewsEdit    = "org.news.edit"
	OrgNewsDelete  = "org.news.delete"
	OrgNewsPublish = "org.news.publish"

	OrgUsersManage  = "org.users.manage"
	OrgGroupsManage = "org.groups.manage"
	OrgSettingsEdit = "org.settings.edit"
)

// Entry is one catalog row.
type Entry struct {
	Code        string
	Description string
}

var entries = []Entry{
	{SystemSuperadmin, "Full platform access; satisfies every system-scoped check"},
	{SystemUsersView, "View console users"},
	{SystemUsersCreate, "Provision console users"},
	{SystemUsersEdit, "Edit and deactivate console users"},
	{SystemUsersDelete, "Delete console users"},
	{SystemOrganizationsView, "View organizations"},
	{SystemOrganizationsCreate, "Create organizations"},
	{SystemOrganizationsEdit, "Edit organizations"},
	{SystemOrganizationsDelete, "Delete organizations"},
	{SystemGroupsView, "View permission groups and grants"},
	{SystemGroupsEdit, "Edit permission groups and grants"},
	{SystemAuditView, "Read the audit log"},

	{OrgPersonView, "View staff directory entries"},
	{OrgPersonCreate, "Add staff directory entries"},
	{OrgPersonEdit, "Edit staff directory entries"},
	{OrgPersonDelete, "Remove staff directory entries"},
	{OrgDepartmentView, "View departments"},
	{OrgDepartmentCreate, "Create departments"},
	{OrgDepartmentEdit, "Edit departments"},
	{OrgDepartmentDelete, "Delete departments"},
	{OrgServiceView, "View citizen services"},
	{OrgServiceCreate, "Create citizen services"},
	{OrgServiceEdit, "Edit citizen services"},
	{OrgServiceDelete, "Delete citizen services"},
	{OrgNewsView, "View news items"},
	{OrgNewsCreate, "Draft news items"},
	{OrgNewsEdit, "Edit news items"},
	{OrgNewsDelete, "Delete news items"},
	{OrgNewsPublish, "Publish news items"},
	{OrgUsersManage, "Assign console users to the organization's groups"},
	{OrgGroupsManage, "Manage the organization's custom groups"},
	{OrgSettingsEdit, "Edit organization settings"},
}

var byCode = func() map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Code] = e.Description
	}
	return m
}()

// All returns a copy of the catalog in declaration order.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// IsKnown reports whether code is in the catalog.
func IsKnown(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Describe returns the description for code, or "" when unknown.
func Describe(code string) string {
	return byCode[code]
}

// IsSystem reports whether code is system-scoped.
func IsSystem(code string) bool {
	return strings.HasPrefix(code, "system.")
}

// IsOrg reports whether code is organization-scoped.
func IsOrg(code string) bool {
	return strings.HasPrefix(code, "org.")
}
