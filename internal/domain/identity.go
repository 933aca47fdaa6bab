package domain

// Identity is the resolved organization-scoped caller, supplied by the
// external identity collaborator at the HTTP boundary. Every repository
// query is scoped by OrganizationID.
type Identity struct {
	OrganizationID string
	MemberID       string
}

// Valid reports whether both components of the identity are present.
func (id Identity) Valid() bool {
	return id.OrganizationID != "" && id.MemberID != ""
}
