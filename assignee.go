package checklist

// AssigneeType is the kind of entity a checklist is filled out for.
type AssigneeType string

const (
	AssigneeFranchisee AssigneeType = "franchisee"
	AssigneeSite       AssigneeType = "site"
)

// An Attribute is a tag carried by a franchisee or site. Fields can be scoped
// to assignees carrying particular attributes.
type Attribute struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Assignee is the franchisee or site a checklist instance is filled out for.
type Assignee struct {
	Type         AssigneeType `json:"type" yaml:"type"`
	ID           int64        `json:"id" yaml:"id"`
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	Email        string       `json:"email,omitempty" yaml:"email,omitempty"`
	FranchiseeID int64        `json:"franchisee_id,omitempty" yaml:"franchisee_id,omitempty"`
	Attributes   []Attribute  `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

func (a Assignee) clone() Assignee {
	a.Attributes = append([]Attribute(nil), a.Attributes...)
	return a
}

// Franchisee as supplied by the assignee attribute source.
type Franchisee struct {
	ID         int64       `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Email      string      `json:"email,omitempty" yaml:"email,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Site as supplied by the assignee attribute source.
type Site struct {
	ID             int64       `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	Email          string      `json:"email,omitempty" yaml:"email,omitempty"`
	FranchiseeID   int64       `json:"franchisee_id,omitempty" yaml:"franchisee_id,omitempty"`
	FranchiseeName string      `json:"franchisee_name,omitempty" yaml:"franchisee_name,omitempty"`
	Attributes     []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Assignee converts the franchisee to an Assignee.
func (f Franchisee) Assignee() Assignee {
	return Assignee{
		Type:         AssigneeFranchisee,
		ID:           f.ID,
		Name:         f.Name,
		Email:        f.Email,
		FranchiseeID: f.ID,
		Attributes:   append([]Attribute(nil), f.Attributes...),
	}
}

// Assignee converts the site to an Assignee.
func (s Site) Assignee() Assignee {
	return Assignee{
		Type:         AssigneeSite,
		ID:           s.ID,
		Name:         s.Name,
		Email:        s.Email,
		FranchiseeID: s.FranchiseeID,
		Attributes:   append([]Attribute(nil), s.Attributes...),
	}
}

// Matches reports whether a field with this scope applies to the assignee.
// A nil scope matches every assignee.
func (s *Scope) Matches(a Assignee) bool {
	if s == nil {
		return true
	}
	if len(s.AssigneeTypes) > 0 {
		found := false
		for _, t := range s.AssigneeTypes {
			if t == a.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(s.Attributes) == 0 {
		return true
	}
	for _, want := range s.Attributes {
		for _, have := range a.Attributes {
			if want.ID != have.ID {
				continue
			}
			if want.Value == "" || want.Value == have.Value {
				return true
			}
		}
	}
	return false
}
