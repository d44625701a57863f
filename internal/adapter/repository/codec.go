package repository

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
)

const (
	activitiesRoot        = "activities"
	chatRoomsRoot         = "chatRooms"
	messagesRoot          = "messages"
	usersRoot             = "users"
	userActivitiesRoot    = "userActivities"
	pendingReviewsRoot    = "pendingReviews"
	userNotificationsRoot = "userNotifications"
)

func nodePath(segs ...string) string {
	return path.Join(segs...)
}

// decode converts a store value into out through its JSON form.
func decode(value interface{}, out interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode store value: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode store value: %w", err)
	}
	return nil
}

// decodeChildren decodes every child of a collection node, skipping
// malformed entries.
func decodeChildren[T any](value interface{}) []*T {
	children, _ := value.(map[string]interface{})
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*T, 0, len(children))
	for _, k := range keys {
		var item T
		if err := decode(children[k], &item); err != nil {
			continue
		}
		out = append(out, &item)
	}
	return out
}

// toInt64 reads a numeric store value; absent or non-numeric values are 0.
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

// childKeys returns the sorted keys of a map node.
func childKeys(value interface{}) []string {
	children, _ := value.(map[string]interface{})
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
