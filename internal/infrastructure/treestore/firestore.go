package treestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meetup/internal/domain/repository"
)

// Firestore maps the tree onto documents: the first path segment is the
// collection, the second the document id and the rest a field path inside
// the document. "activities/a1/participants/u1" is the field
// participants.u1 of document activities/a1.
//
// Roots listed in nestedCollections get one more level: the second segment
// names a parent document whose subcollection holds the children as
// documents. "messages/r1/m1" is the document messages/r1/items/m1, so a
// room's history is not bound by the size or write rate of one document.
type Firestore struct {
	client *firestore.Client
}

var nestedCollections = map[string]string{
	"messages": "items",
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

type docPath struct {
	collection string
	parentID   string
	docID      string
	fields     []string
}

func (p docPath) key() string {
	return strings.Join([]string{p.collection, p.parentID, p.docID}, "/")
}

func parseDocPath(path string) (docPath, error) {
	segs := SplitPath(path)
	if _, nested := nestedCollections[rootOf(segs)]; nested {
		if len(segs) < 3 {
			return docPath{}, fmt.Errorf("firestore store: path %q does not address a document", path)
		}
		return docPath{collection: segs[0], parentID: segs[1], docID: segs[2], fields: segs[3:]}, nil
	}
	if len(segs) < 2 {
		return docPath{}, fmt.Errorf("firestore store: path %q does not address a document", path)
	}
	return docPath{collection: segs[0], docID: segs[1], fields: segs[2:]}, nil
}

func rootOf(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

// subcollection returns the collection behind a two segment path under a
// nested root, or nil for any other path.
func (f *Firestore) subcollection(segs []string) *firestore.CollectionRef {
	sub, ok := nestedCollections[rootOf(segs)]
	if !ok || len(segs) != 2 {
		return nil
	}
	return f.client.Collection(segs[0]).Doc(segs[1]).Collection(sub)
}

func (f *Firestore) doc(p docPath) *firestore.DocumentRef {
	if p.parentID != "" {
		return f.client.Collection(p.collection).Doc(p.parentID).Collection(nestedCollections[p.collection]).Doc(p.docID)
	}
	return f.client.Collection(p.collection).Doc(p.docID)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (f *Firestore) Get(ctx context.Context, path string) (interface{}, error) {
	segs := SplitPath(path)
	if len(segs) == 1 {
		return f.getCollection(ctx, f.client.Collection(segs[0]))
	}
	if col := f.subcollection(segs); col != nil {
		return f.getCollection(ctx, col)
	}
	p, err := parseDocPath(path)
	if err != nil {
		return nil, err
	}
	snap, err := f.doc(p).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return Normalize(valueAt(snap.Data(), p.fields))
}

func (f *Firestore) getCollection(ctx context.Context, col *firestore.CollectionRef) (interface{}, error) {
	docs, err := col.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(docs))
	for _, d := range docs {
		out[d.Ref.ID] = d.Data()
	}
	return Normalize(out)
}

// nested builds the merge payload and field path for a write below a document.
func nested(fields []string, value interface{}) (map[string]interface{}, firestore.FieldPath) {
	var v interface{} = firestore.Delete
	if value != nil {
		v = value
	}
	for i := len(fields) - 1; i >= 1; i-- {
		v = map[string]interface{}{fields[i]: v}
	}
	return map[string]interface{}{fields[0]: v}, firestore.FieldPath(fields)
}

func (f *Firestore) Set(ctx context.Context, path string, value interface{}) error {
	return f.Update(ctx, map[string]interface{}{path: value})
}

func (f *Firestore) Remove(ctx context.Context, path string) error {
	return f.Set(ctx, path, nil)
}

func (f *Firestore) Update(ctx context.Context, values map[string]interface{}) error {
	type docWrite struct {
		ref    *firestore.DocumentRef
		whole  bool
		value  interface{}
		data   map[string]interface{}
		fields []firestore.FieldPath
	}
	writes := make(map[string]*docWrite)
	var clears []docPath

	expanded := make(map[string]interface{}, len(values))
	for path, raw := range values {
		segs := SplitPath(path)
		if f.subcollection(segs) == nil {
			expanded[path] = raw
			continue
		}
		value, err := Normalize(raw)
		if err != nil {
			return err
		}
		children, isMap := value.(map[string]interface{})
		if value != nil && !isMap {
			return fmt.Errorf("firestore store: %s must be an object", path)
		}
		clears = append(clears, docPath{collection: segs[0], parentID: segs[1]})
		for id, child := range children {
			expanded[JoinPath(path, id)] = child
		}
	}

	for path, raw := range expanded {
		p, err := parseDocPath(path)
		if err != nil {
			return err
		}
		value, err := Normalize(raw)
		if err != nil {
			return err
		}
		key := p.key()
		w, ok := writes[key]
		if !ok {
			w = &docWrite{ref: f.doc(p), data: make(map[string]interface{})}
			writes[key] = w
		}
		if len(p.fields) == 0 {
			if len(w.fields) > 0 {
				return fmt.Errorf("firestore store: overlapping paths under %s", key)
			}
			if value != nil {
				if _, isMap := value.(map[string]interface{}); !isMap {
					return fmt.Errorf("firestore store: document %s must be an object", key)
				}
			}
			w.whole, w.value = true, value
			continue
		}
		if w.whole {
			return fmt.Errorf("firestore store: overlapping paths under %s", key)
		}
		data, fp := nested(p.fields, value)
		mergeInto(w.data, data)
		w.fields = append(w.fields, fp)
	}

	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// reads first: a transaction cannot read after it has written
		var stale []*firestore.DocumentRef
		for _, c := range clears {
			col := f.subcollection([]string{c.collection, c.parentID})
			docs, err := tx.Documents(col).GetAll()
			if err != nil {
				return err
			}
			for _, d := range docs {
				c.docID = d.Ref.ID
				if _, rewritten := writes[c.key()]; !rewritten {
					stale = append(stale, d.Ref)
				}
			}
		}
		for _, ref := range stale {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		for _, w := range writes {
			var err error
			switch {
			case w.whole && w.value == nil:
				err = tx.Delete(w.ref)
			case w.whole:
				err = tx.Set(w.ref, w.value)
			default:
				err = tx.Set(w.ref, w.data, firestore.Merge(w.fields...))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		if dm, ok := dst[k].(map[string]interface{}); ok {
			if sm, ok := v.(map[string]interface{}); ok {
				mergeInto(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

func (f *Firestore) Transaction(ctx context.Context, path string, fn repository.TransactionFunc) (interface{}, error) {
	p, err := parseDocPath(path)
	if err != nil {
		return nil, err
	}
	ref := f.doc(p)

	var committed interface{}
	err = f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current interface{}
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			current, err = Normalize(valueAt(snap.Data(), p.fields))
			if err != nil {
				return err
			}
		case isNotFound(err):
		default:
			return err
		}

		next, err := fn(current)
		if err != nil {
			committed = current
			return err
		}
		norm, err := Normalize(next)
		if err != nil {
			return err
		}
		committed = norm

		if len(p.fields) == 0 {
			if norm == nil {
				return tx.Delete(ref)
			}
			return tx.Set(ref, norm)
		}
		data, fp := nested(p.fields, norm)
		return tx.Set(ref, data, firestore.Merge(fp))
	})
	if errors.Is(err, repository.ErrAbortTransaction) {
		return committed, nil
	}
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (f *Firestore) QueryByChild(ctx context.Context, path, child string, value interface{}) (map[string]interface{}, error) {
	segs := SplitPath(path)
	if len(segs) != 1 {
		node, err := f.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{})
		children, _ := node.(map[string]interface{})
		for k, v := range children {
			if childEquals(v, child, value) {
				out[k] = v
			}
		}
		return out, nil
	}

	norm, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	fp := firestore.FieldPath(SplitPath(child))
	iter := f.client.Collection(segs[0]).WherePath(fp, "==", norm).Documents(ctx)
	defer iter.Stop()

	out := make(map[string]interface{})
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		v, err := Normalize(doc.Data())
		if err != nil {
			return nil, err
		}
		out[doc.Ref.ID] = v
	}
	return out, nil
}

func (f *Firestore) Subscribe(ctx context.Context, path string, mode repository.SubscribeMode) (<-chan repository.ChangeEvent, error) {
	segs := SplitPath(path)
	clean := strings.Join(segs, "/")
	out := make(chan repository.ChangeEvent, 64)

	send := func(events []repository.ChangeEvent) bool {
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	col := f.subcollection(segs)
	if len(segs) == 1 {
		col = f.client.Collection(segs[0])
	}
	if col != nil {
		it := col.Snapshots(ctx)
		go func() {
			defer close(out)
			defer it.Stop()
			var last interface{}
			for {
				qs, err := it.Next()
				if err != nil {
					return
				}
				current := make(map[string]interface{}, qs.Size)
				for {
					doc, err := qs.Documents.Next()
					if err != nil {
						break
					}
					current[doc.Ref.ID] = doc.Data()
				}
				next, err := Normalize(current)
				if err != nil {
					continue
				}
				if !send(Diff(clean, mode, last, next)) {
					return
				}
				last = next
			}
		}()
		return out, nil
	}

	p, err := parseDocPath(path)
	if err != nil {
		return nil, err
	}
	it := f.doc(p).Snapshots(ctx)
	go func() {
		defer close(out)
		defer it.Stop()
		var last interface{}
		for {
			snap, err := it.Next()
			if err != nil {
				return
			}
			var next interface{}
			if snap.Exists() {
				next, err = Normalize(valueAt(snap.Data(), p.fields))
				if err != nil {
					continue
				}
			}
			if !send(Diff(clean, mode, last, next)) {
				return
			}
			last = next
		}
	}()
	return out, nil
}
