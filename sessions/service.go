package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// RevokeRequest has two shapes: revoke everything, or everything except the
// session the caller is using right now.
type RevokeRequest struct {
	ExceptCurrent    bool
	CurrentSessionID string
}

type Service struct {
	repo Repo
	now  func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = fn
	}
}

func NewService(repo Repo, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, userID string) ([]*Session, error) {
	all, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("[Service.List] %w", err)
	}
	now := s.now()
	active := make([]*Session, 0, len(all))
	for _, sess := range all {
		if !sess.IsExpired(now) {
			active = append(active, sess)
		}
	}
	return active, nil
}

func (s *Service) Revoke(ctx context.Context, userID string, req RevokeRequest) (int, error) {
	if userID == "" {
		return 0, errors.Wrapf(errors.ErrUnauthenticated, "[Service.Revoke] no user")
	}
	exceptID := ""
	if req.ExceptCurrent {
		if req.CurrentSessionID == "" {
			return 0, errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvalidInput, "current session is unknown, cannot keep it", 0)
		}
		exceptID = req.CurrentSessionID
	}

	n, err := s.repo.DeleteByUserID(ctx, userID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("[Service.Revoke] %w", err)
	}
	log.Info().Str("userId", userID).Bool("exceptCurrent", req.ExceptCurrent).Int("revoked", n).Msg("sessions revoked")
	return n, nil
}

// PurgeExpired drops sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("[Service.PurgeExpired] %w", err)
	}
	return n, nil
}
