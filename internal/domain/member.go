package domain

// MemberProfile is a team member resolved from the chat directory.
type MemberProfile struct {
	ObjectID string `json:"objectId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Expert converts the profile into a roster entry.
func (m MemberProfile) Expert() Expert {
	return Expert{ObjectID: m.ObjectID, Name: m.Name, Email: m.Email}
}
