// Package treestore provides the Store implementations the repositories run
// on: an in-memory tree, the Firebase Realtime Database and Firestore.
package treestore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"meetup/internal/domain/repository"
)

// SplitPath turns "a/b/c" into its segments, ignoring empty ones.
func SplitPath(path string) []string {
	raw := strings.Split(path, "/")
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// JoinPath joins segments into a store path.
func JoinPath(segs ...string) string {
	return strings.Join(SplitPath(strings.Join(segs, "/")), "/")
}

// Normalize converts an arbitrary Go value into the JSON-like shape a tree
// store holds: map[string]interface{}, []interface{}, float64, string, bool.
// Empty maps collapse to nil because empty nodes do not exist in a tree.
func Normalize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return prune(out), nil
}

func prune(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if p := prune(child); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []interface{}:
		if len(t) == 0 {
			return nil
		}
		for i := range t {
			t[i] = prune(t[i])
		}
		return t
	default:
		return v
	}
}

// deepCopy clones a normalized value.
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, child := range t {
			m[k] = deepCopy(child)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i := range t {
			s[i] = deepCopy(t[i])
		}
		return s
	default:
		return v
	}
}

// valueAt walks segs below root.
func valueAt(root interface{}, segs []string) interface{} {
	cur := root
	for _, s := range segs {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[s]
	}
	return cur
}

// withValue returns root with value placed at segs, creating intermediate
// maps and pruning maps left empty by a nil value.
func withValue(root interface{}, segs []string, value interface{}) interface{} {
	if len(segs) == 0 {
		return value
	}
	m, ok := root.(map[string]interface{})
	if !ok {
		if value == nil {
			return root
		}
		m = make(map[string]interface{})
	}
	child := withValue(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// isPrefix reports whether a is an ancestor of, or equal to, b.
func isPrefix(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// overlaps reports whether a write at one path can change the value at the other.
func overlaps(a, b []string) bool {
	return isPrefix(a, b) || isPrefix(b, a)
}

// Diff computes the change events between two snapshots of the value at
// path, according to mode.
func Diff(path string, mode repository.SubscribeMode, before, after interface{}) []repository.ChangeEvent {
	if mode == repository.ModeValue {
		if reflect.DeepEqual(before, after) {
			return nil
		}
		return []repository.ChangeEvent{{Kind: repository.ValueChanged, Path: path, Value: deepCopy(after)}}
	}

	oldChildren, _ := before.(map[string]interface{})
	newChildren, _ := after.(map[string]interface{})

	keys := make([]string, 0, len(oldChildren)+len(newChildren))
	seen := make(map[string]bool)
	for k := range oldChildren {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range newChildren {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var events []repository.ChangeEvent
	for _, k := range keys {
		oldV, hadOld := oldChildren[k]
		newV, hasNew := newChildren[k]
		switch {
		case !hadOld && hasNew:
			events = append(events, repository.ChangeEvent{Kind: repository.ChildAdded, Path: path, Key: k, Value: deepCopy(newV)})
		case hadOld && !hasNew:
			events = append(events, repository.ChangeEvent{Kind: repository.ChildRemoved, Path: path, Key: k, Value: deepCopy(oldV)})
		case !reflect.DeepEqual(oldV, newV):
			events = append(events, repository.ChangeEvent{Kind: repository.ChildChanged, Path: path, Key: k, Value: deepCopy(newV)})
		}
	}
	return events
}

// childEquals reports whether child (a slash path) of node equals value,
// comparing normalized forms so 3 and 3.0 match.
func childEquals(node interface{}, child string, value interface{}) bool {
	got := valueAt(node, SplitPath(child))
	want, err := Normalize(value)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(got, want)
}
