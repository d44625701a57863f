package entity

const PendingStatusPending = "pending"

// PendingReviewItem records that a reviewer owes targetUserId a rating for
// a finished activity. Stored under pendingReviews/{reviewerId}/{id}.
type PendingReviewItem struct {
	ID            string `json:"id"`
	TargetUserID  string `json:"targetUserId"`
	TargetName    string `json:"targetName,omitempty"`
	ActivityID    string `json:"activityId"`
	ActivityTitle string `json:"activityTitle"`
	Timestamp     int64  `json:"timestamp"`
	Status        string `json:"status"`
}

// UserReview is appended under users/{targetUserId}/reviews/{reviewId}.
type UserReview struct {
	ReviewID      string `json:"reviewId"`
	ReviewerID    string `json:"reviewerId"`
	ReviewerName  string `json:"reviewerName"`
	ActivityID    string `json:"activityId"`
	ActivityTitle string `json:"activityTitle"`
	Rating        int    `json:"rating"` // 1-5
	Comment       string `json:"comment"`
	Timestamp     int64  `json:"timestamp"`
}

// RatingStats is the aggregate kept on the user node.
type RatingStats struct {
	Rating      float64 `json:"rating"`
	RatingSum   int64   `json:"ratingSum"`
	ReviewCount int64   `json:"reviewCount"`
}
