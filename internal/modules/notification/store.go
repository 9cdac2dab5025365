// README: FCM device token registry in the Firestore fcm_tokens collection.
package notification

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"londa/internal/types"
)

const tokensCollection = "fcm_tokens"

var ErrNoToken = errors.New("no device token registered")

type TokenStore interface {
	Save(ctx context.Context, userID types.ID, token string) error
	Token(ctx context.Context, userID types.ID) (string, error)
	Delete(ctx context.Context, userID types.ID) error
}

type tokenDoc struct {
	Token     string    `firestore:"token"`
	UserID    string    `firestore:"userId"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type FirestoreTokenStore struct {
	client *firestore.Client
}

func NewFirestoreTokenStore(client *firestore.Client) *FirestoreTokenStore {
	return &FirestoreTokenStore{client: client}
}

func (s *FirestoreTokenStore) Save(ctx context.Context, userID types.ID, token string) error {
	_, err := s.client.Collection(tokensCollection).Doc(string(userID)).Set(ctx, tokenDoc{
		Token:     token,
		UserID:    string(userID),
		UpdatedAt: time.Now().UTC(),
	})
	return err
}

func (s *FirestoreTokenStore) Token(ctx context.Context, userID types.ID) (string, error) {
	snap, err := s.client.Collection(tokensCollection).Doc(string(userID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	var d tokenDoc
	if err := snap.DataTo(&d); err != nil {
		return "", err
	}
	if d.Token == "" {
		return "", ErrNoToken
	}
	return d.Token, nil
}

func (s *FirestoreTokenStore) Delete(ctx context.Context, userID types.ID) error {
	_, err := s.client.Collection(tokensCollection).Doc(string(userID)).Delete(ctx)
	return err
}
