package members

// CreateInput groups fields for registering a member.
type CreateInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// UpdateInput groups mutable member fields.
type UpdateInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// ListFilters narrows member listings.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
	Status *MemberStatus
}
