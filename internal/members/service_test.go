package members

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinoman/superapp/internal/platform/httpx"
	"github.com/sinoman/superapp/internal/shared"
)

type fakeRepo struct {
	members map[int64]Member
	nextID  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{members: make(map[int64]Member)}
}

func (f *fakeRepo) Create(_ context.Context, in CreateInput) (Member, error) {
	f.nextID++
	member := Member{
		ID:           f.nextID,
		MemberNumber: "SIN-202401-0001",
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Address:      in.Address,
		Status:       MemberStatusActive,
		JoinedAt:     time.Now(),
	}
	f.members[member.ID] = member
	return member, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Member, error) {
	member, ok := f.members[id]
	if !ok {
		return Member{}, shared.ErrNotFound
	}
	return member, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListFilters) ([]Member, int, error) {
	out := make([]Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, in UpdateInput) (Member, error) {
	member, ok := f.members[id]
	if !ok {
		return Member{}, shared.ErrNotFound
	}
	member.FullName = in.FullName
	member.Email = in.Email
	member.Phone = in.Phone
	member.Address = in.Address
	f.members[id] = member
	return member, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id int64, status MemberStatus) error {
	member, ok := f.members[id]
	if !ok {
		return shared.ErrNotFound
	}
	member.Status = status
	f.members[id] = member
	return nil
}

type auditRecorder struct {
	actions []string
}

func (a *auditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func TestRegister(t *testing.T) {
	repo := newFakeRepo()
	audit := &auditRecorder{}
	service := NewService(repo, audit)

	member, err := service.Register(context.Background(), 7, CreateInput{
		FullName: "Budi Santoso",
		Phone:    "081234567801",
	})
	require.NoError(t, err)
	assert.Equal(t, MemberStatusActive, member.Status)
	assert.NotEmpty(t, member.MemberNumber)
	assert.Equal(t, []string{"member.register"}, audit.actions)
}

func TestRegisterValidation(t *testing.T) {
	service := NewService(newFakeRepo(), nil)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing name", CreateInput{Phone: "0812"}},
		{"missing phone", CreateInput{FullName: "Budi"}},
		{"bad email", CreateInput{FullName: "Budi", Phone: "0812", Email: "not-an-email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), 7, tc.in)
			require.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
}

func TestDeactivateReactivate(t *testing.T) {
	repo := newFakeRepo()
	audit := &auditRecorder{}
	service := NewService(repo, audit)

	member, err := service.Register(context.Background(), 7, CreateInput{FullName: "Budi", Phone: "0812"})
	require.NoError(t, err)

	require.NoError(t, service.Deactivate(context.Background(), 7, member.ID))
	got, err := service.Get(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, MemberStatusInactive, got.Status)

	require.NoError(t, service.Reactivate(context.Background(), 7, member.ID))
	got, err = service.Get(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, MemberStatusActive, got.Status)

	assert.Equal(t, []string{"member.register", "member.deactivate", "member.reactivate"}, audit.actions)
}

func TestGetNotFound(t *testing.T) {
	service := NewService(newFakeRepo(), nil)
	_, err := service.Get(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, nil)

	member, err := service.Register(context.Background(), 7, CreateInput{FullName: "Budi", Phone: "0812"})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), 7, member.ID, UpdateInput{
		FullName: "Budi Santoso",
		Phone:    "0813",
		Email:    "budi@sinoman.local",
	})
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", updated.FullName)
	assert.Equal(t, "0813", updated.Phone)
}
