package models

// Group is a local catalog group as returned by the local group lookup.
type Group struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Organization is a local catalog organization.
type Organization struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// GroupRef is the id+name pair a dataset carries for each group membership.
type GroupRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// RemoteGroup is the full payload of a remote group_show call. Server-managed
// collections (Packages, Users, Groups, Tags, Extras) and computed fields
// (Created, DisplayName) are decoded so the shape is explicit, but they are
// deliberately absent from the create requests built below.
type RemoteGroup struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Title          string        `json:"title,omitempty"`
	Description    string        `json:"description,omitempty"`
	Type           string        `json:"type,omitempty"`
	State          string        `json:"state,omitempty"`
	ImageURL       string        `json:"image_url,omitempty"`
	ApprovalStatus string        `json:"approval_status,omitempty"`
	IsOrganization bool          `json:"is_organization,omitempty"`
	Created        string        `json:"created,omitempty"`
	DisplayName    string        `json:"display_name,omitempty"`
	Packages       interface{}   `json:"packages,omitempty"`
	Users          []interface{} `json:"users,omitempty"`
	Groups         []interface{} `json:"groups,omitempty"`
	Tags           []interface{} `json:"tags,omitempty"`
	Extras         []interface{} `json:"extras,omitempty"`
}

// GroupCreate is the local group_create request. The allow-listed fields are
// the only ones that survive the remote→local transform.
type GroupCreate struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type,omitempty"`
	State          string `json:"state,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	ApprovalStatus string `json:"approval_status,omitempty"`
}

// OrganizationCreate is the local organization_create request. Identical to
// GroupCreate except that the remote Type is additionally dropped: a group
// fetched as an organization fallback must not carry its group type over.
type OrganizationCreate struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	State          string `json:"state,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	ApprovalStatus string `json:"approval_status,omitempty"`
}

// ToGroupCreate strips the server-managed fields from a remote group.
func (g *RemoteGroup) ToGroupCreate() *GroupCreate {
	return &GroupCreate{
		ID:             g.ID,
		Name:           g.Name,
		Title:          g.Title,
		Description:    g.Description,
		Type:           g.Type,
		State:          g.State,
		ImageURL:       g.ImageURL,
		ApprovalStatus: g.ApprovalStatus,
	}
}

// ToOrganizationCreate strips the server-managed fields plus Type.
func (g *RemoteGroup) ToOrganizationCreate() *OrganizationCreate {
	return &OrganizationCreate{
		ID:             g.ID,
		Name:           g.Name,
		Title:          g.Title,
		Description:    g.Description,
		State:          g.State,
		ImageURL:       g.ImageURL,
		ApprovalStatus: g.ApprovalStatus,
	}
}
