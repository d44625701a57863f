package treestore

import (
	"context"
	"errors"
	"time"

	"firebase.google.com/go/v4/db"

	"meetup/internal/domain/repository"
	"meetup/pkg/logger"
)

// RTDB adapts the Firebase Realtime Database admin client. The admin SDK
// offers no streaming listeners, so subscriptions poll the path and diff
// successive snapshots.
type RTDB struct {
	client       *db.Client
	pollInterval time.Duration
}

func NewRTDB(client *db.Client, pollInterval time.Duration) *RTDB {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &RTDB{
		client:       client,
		pollInterval: pollInterval,
	}
}

func (r *RTDB) ref(path string) *db.Ref {
	return r.client.NewRef("/" + JoinPath(path))
}

func (r *RTDB) Get(ctx context.Context, path string) (interface{}, error) {
	var v interface{}
	if err := r.ref(path).Get(ctx, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *RTDB) Set(ctx context.Context, path string, value interface{}) error {
	norm, err := Normalize(value)
	if err != nil {
		return err
	}
	if norm == nil {
		return r.ref(path).Delete(ctx)
	}
	return r.ref(path).Set(ctx, norm)
}

func (r *RTDB) Remove(ctx context.Context, path string) error {
	return r.ref(path).Delete(ctx)
}

func (r *RTDB) Update(ctx context.Context, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	patch := make(map[string]interface{}, len(values))
	for p, v := range values {
		norm, err := Normalize(v)
		if err != nil {
			return err
		}
		patch[JoinPath(p)] = norm
	}
	return r.client.NewRef("/").Update(ctx, patch)
}

func (r *RTDB) Transaction(ctx context.Context, path string, fn repository.TransactionFunc) (interface{}, error) {
	var committed interface{}
	aborted := false
	err := r.ref(path).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current interface{}
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		next, err := fn(current)
		if errors.Is(err, repository.ErrAbortTransaction) {
			aborted = true
			committed = current
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		aborted = false
		norm, err := Normalize(next)
		if err != nil {
			return nil, err
		}
		committed = norm
		return norm, nil
	})
	if aborted {
		return committed, nil
	}
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (r *RTDB) QueryByChild(ctx context.Context, path, child string, value interface{}) (map[string]interface{}, error) {
	norm, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	q := r.ref(path).OrderByChild(child).EqualTo(norm)
	out := make(map[string]interface{})
	if err := q.Get(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RTDB) Subscribe(ctx context.Context, path string, mode repository.SubscribeMode) (<-chan repository.ChangeEvent, error) {
	current, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make(chan repository.ChangeEvent, 64)
	clean := JoinPath(path)

	go func() {
		defer close(out)
		last := interface{}(nil)
		emit := func(next interface{}) bool {
			for _, ev := range Diff(clean, mode, last, next) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return false
				}
			}
			last = next
			return true
		}
		if !emit(current) {
			return
		}

		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next, err := r.Get(ctx, clean)
				if err != nil {
					if ctx.Err() == nil {
						logger.WithFields(logger.Fields{"path": clean}).WithError(err).Warn("rtdb poll failed")
					}
					continue
				}
				if !emit(next) {
					return
				}
			}
		}
	}()
	return out, nil
}
