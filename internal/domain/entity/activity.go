package entity

// DeleteMode selects the side effects of an activity delete cascade.
type DeleteMode string

const (
	// DeleteSilent removes the activity without notifying or crediting participants.
	DeleteSilent DeleteMode = "SILENT"
	// DeleteWithNotifications treats the delete as the end of the activity.
	DeleteWithNotifications DeleteMode = "WITH_NOTIFICATIONS"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilityFriends = "friends"
)

// Activity is a meetup event. CurrentParticipants mirrors len(Participants)
// and is only ever changed by the membership counter transaction.
type Activity struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	Category            string            `json:"category"`
	Date                string            `json:"date"` // 2006-01-02
	Time                string            `json:"time"` // 15:04
	Location            string            `json:"location"`
	Lat                 float64           `json:"lat"`
	Lon                 float64           `json:"lon"`
	CurrentParticipants int               `json:"currentParticipants"`
	MaxParticipants     int               `json:"maxParticipants"`
	Visibility          string            `json:"visibility"`
	Hashtags            []string          `json:"hashtags,omitempty"`
	CreatorID           string            `json:"creatorId"`
	CreatorName         string            `json:"creatorName"`
	CreatedTimestamp    int64             `json:"createdTimestamp"`
	Participants        map[string]string `json:"participants,omitempty"`
}

// IsParticipant reports whether userID has a participant entry.
func (a *Activity) IsParticipant(userID string) bool {
	_, ok := a.Participants[userID]
	return ok
}

// ParticipantIDs returns the ids of the participant entries.
func (a *Activity) ParticipantIDs() []string {
	ids := make([]string, 0, len(a.Participants))
	for id := range a.Participants {
		ids = append(ids, id)
	}
	return ids
}

// IsFull reports whether a positive capacity has been reached.
func (a *Activity) IsFull() bool {
	return a.MaxParticipants > 0 && a.CurrentParticipants >= a.MaxParticipants
}
