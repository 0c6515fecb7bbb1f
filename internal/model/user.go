package model

import "time"

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPublic is the profile summary other services and clients see.
type UserPublic struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name}
}

// UnknownUser is the placeholder profile substituted when the user
// directory is unreachable. Chat operations must not fail on a directory
// outage.
func UnknownUser(id string) UserPublic {
	return UserPublic{ID: id, Name: "Unknown User"}
}
