package entity

type User struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Email              string          `json:"email,omitempty"`
	ProfileURL         string          `json:"profileUrl,omitempty"`
	Bio                string          `json:"bio,omitempty"`
	PushToken          string          `json:"pushToken,omitempty"`
	Role               string          `json:"role,omitempty"`
	Rating             float64         `json:"rating"`
	RatingSum          int64           `json:"ratingSum"`
	ReviewCount        int64           `json:"reviewCount"`
	ParticipationCount int64           `json:"participationCount"`
	Friends            map[string]bool `json:"friends,omitempty"`
	FriendRequests     map[string]bool `json:"friendRequests,omitempty"`
	CreatedTimestamp   int64           `json:"createdTimestamp"`
}

func (u *User) IsFriend(userID string) bool {
	return u.Friends[userID]
}

// DisplayName falls back to the id for users without a profile name.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
