// README: Notification service: token registration and bounded fan-out to push recipients.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"londa/internal/metrics"
	"londa/internal/types"
)

type Service struct {
	tokens      TokenStore
	push        PushProvider
	concurrency int
}

func NewService(tokens TokenStore, push PushProvider, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{tokens: tokens, push: push, concurrency: concurrency}
}

var ErrBadRequest = errors.New("bad request")

func (s *Service) RegisterToken(ctx context.Context, userID types.ID, token string) error {
	if userID == "" || token == "" {
		return ErrBadRequest
	}
	return s.tokens.Save(ctx, userID, token)
}

// NotifyUser sends msg to one user's registered device. Unregistered tokens are deleted.
func (s *Service) NotifyUser(ctx context.Context, userID types.ID, msg Message) error {
	token, err := s.tokens.Token(ctx, userID)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(msg.Kind), "no_token").Inc()
		return err
	}
	err = s.push.Send(ctx, token, msg)
	switch {
	case errors.Is(err, ErrUnregistered):
		metrics.Notifications.WithLabelValues(string(msg.Kind), "unregistered").Inc()
		if delErr := s.tokens.Delete(ctx, userID); delErr != nil {
			slog.WarnContext(ctx, "delete stale device token failed", "user_id", userID, "err", delErr)
		}
		return err
	case err != nil:
		metrics.Notifications.WithLabelValues(string(msg.Kind), "error").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues(string(msg.Kind), "sent").Inc()
	return nil
}

// NotifyUsers fans msg out to every user with bounded concurrency. One
// recipient failing never stops the others; per-user outcomes are returned
// in input order.
func (s *Service) NotifyUsers(ctx context.Context, userIDs []types.ID, msg Message) []Result {
	results := make([]Result, len(userIDs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			results[i] = Result{UserID: id, Err: s.NotifyUser(ctx, id, msg)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
