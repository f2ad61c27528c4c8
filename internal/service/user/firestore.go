package user

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

// FirestoreStore implements Store on a Firestore collection with one document per user id.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore get %s: %w", id, err)
	}

	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	doc.ID = snap.Ref.ID

	return doc.toUser(), nil
}

func (s *FirestoreStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	docs, err := s.client.Collection(usersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return false, fmt.Errorf("firestore query email: %w", err)
	}
	return len(docs) > 0, nil
}

// Upsert writes the whole document inside a transaction so that the stored
// createdAt survives overwrites.
func (s *FirestoreStore) Upsert(ctx context.Context, u *User) (*User, error) {
	ref := s.client.Collection(usersCollection).Doc(u.ID)
	doc := toDocument(u)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var prev userDocument
			if err := snap.DataTo(&prev); err != nil {
				return err
			}
			if !prev.CreatedAt.IsZero() {
				doc.CreatedAt = prev.CreatedAt.UTC()
			}
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("firestore upsert %s: %w", u.ID, err)
	}

	return doc.toUser(), nil
}

var _ Store = (*FirestoreStore)(nil)
