package members

import (
	"context"
	"fmt"
	"time"

	"github.com/sinoman/superapp/internal/shared"
)

// AuditPort records member mutations in the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps member registry business rules.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates a new active member with a generated member number.
func (s *Service) Register(ctx context.Context, actorID int64, in CreateInput) (Member, error) {
	if err := validateCreate(in); err != nil {
		return Member{}, err
	}
	member, err := s.repo.Create(ctx, in)
	if err != nil {
		return Member{}, err
	}
	s.record(ctx, actorID, "member.register", member.ID, map[string]any{"member_number": member.MemberNumber})
	return member, nil
}

// Get fetches a single member.
func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.repo.Get(ctx, id)
}

// List returns members matching the filters plus the unfiltered total.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Member, int, error) {
	return s.repo.List(ctx, filters)
}

// Update mutates member contact fields.
func (s *Service) Update(ctx context.Context, actorID, id int64, in UpdateInput) (Member, error) {
	if err := validateUpdate(in); err != nil {
		return Member{}, err
	}
	member, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Member{}, err
	}
	s.record(ctx, actorID, "member.update", member.ID, nil)
	return member, nil
}

// Deactivate marks a member inactive. Inactive members cannot receive postings.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SetStatus(ctx, id, MemberStatusInactive); err != nil {
		return err
	}
	s.record(ctx, actorID, "member.deactivate", id, nil)
	return nil
}

// Reactivate marks a member active again.
func (s *Service) Reactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.SetStatus(ctx, id, MemberStatusActive); err != nil {
		return err
	}
	s.record(ctx, actorID, "member.reactivate", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, memberID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "member",
		EntityID: fmt.Sprintf("%d", memberID),
		Meta:     meta,
		At:       s.now(),
	})
}
