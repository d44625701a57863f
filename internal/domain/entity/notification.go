package entity

type NotificationKind string

const (
	NotificationActivityEnded   NotificationKind = "activity_ended"
	NotificationReviewRequested NotificationKind = "review_requested"
	NotificationFriendRequest   NotificationKind = "friend_request"
)

// Display titles written by earlier clients; cleanup still matches on them
// for records that predate the kind field.
const (
	TitleActivityEnded   = "활동 종료"
	TitleReviewRequested = "참여자 평가 요청"
)

type Notification struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	ActivityID string           `json:"activityId,omitempty"`
	Kind       NotificationKind `json:"kind,omitempty"`
	Timestamp  int64            `json:"timestamp"`
	IsRead     bool             `json:"isRead"`
}

// IsActivityEndRecord reports whether n is one of the two records created
// when activityID ended.
func (n *Notification) IsActivityEndRecord(activityID string) bool {
	if n.ActivityID != activityID {
		return false
	}
	switch n.Kind {
	case NotificationActivityEnded, NotificationReviewRequested:
		return true
	}
	return n.Title == TitleActivityEnded || n.Title == TitleReviewRequested
}
