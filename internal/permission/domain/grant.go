// Package domain holds the permission model: who holds which capability through which group.
package domain

// Grant is one group's contribution to a user's capabilities in an organization. It is either
// a TemplateGrant or a CustomGrant.
type Grant interface {
	// Group returns the id of the group the codes come from.
	Group() string
	// Capabilities returns the codes the group carries, sorted.
	Capabilities() []string
	isGrant()
}

// TemplateGrant comes from a template group shared across organizations. The organization is
// taken from the membership row, not the group.
type TemplateGrant struct {
	OrganizationID string
	GroupID        string
	GroupName      string
	Codes          []string
}

func (g TemplateGrant) Group() string          { return g.GroupID }
func (g TemplateGrant) Capabilities() []string { return g.Codes }
func (TemplateGrant) isGrant()                 {}

// CustomGrant comes from a group owned by a single organization.
type CustomGrant struct {
	GroupID   string
	GroupName string
	Codes     []string
}

func (g CustomGrant) Group() string          { return g.GroupID }
func (g CustomGrant) Capabilities() []string { return g.Codes }
func (CustomGrant) isGrant()                 {}

// Organization is the scoping boundary for org-level capabilities.
type Organization struct {
	ID   string
	Name string
}
