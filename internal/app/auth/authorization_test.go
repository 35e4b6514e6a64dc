package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
)

type fakeMemberResolver struct {
	members map[int64]*models.Member // keyed by userID
	err     error
}

func (f *fakeMemberResolver) GetMemberByCommunityAndUser(_ context.Context, communityID, userID int64) (*models.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	member, ok := f.members[userID]
	if !ok || member.CommunityID != communityID {
		return nil, apperrors.ErrMemberNotFound
	}
	return member, nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestRequireMemberApprovedOnly(t *testing.T) {
	cases := []struct {
		name   string
		status models.MemberStatus
		wantOK bool
	}{
		{"approved", models.MemberApproved, true},
		{"pending", models.MemberPending, false},
		{"rejected", models.MemberRejected, false},
		{"suspended", models.MemberSuspended, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &fakeMemberResolver{members: map[int64]*models.Member{
				101: {ID: 1, CommunityID: 1, UserID: 101, Role: models.RoleResident, Status: tc.status},
			}}
			svc := NewAuthorizationService(resolver)

			member, err := svc.RequireMember(context.Background(), 101, 1)
			if tc.wantOK {
				if err != nil {
					t.Fatalf("expected approved member to pass, got %v", err)
				}
				if member.ID != 1 {
					t.Fatalf("expected member 1, got %d", member.ID)
				}
				return
			}
			if !errors.Is(err, apperrors.ErrPermissionDenied) {
				t.Fatalf("expected ErrPermissionDenied, got %v", err)
			}
		})
	}
}

func TestRequireMemberNoMembership(t *testing.T) {
	svc := NewAuthorizationService(&fakeMemberResolver{members: map[int64]*models.Member{}})
	if _, err := svc.RequireMember(context.Background(), 101, 1); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRequireMemberResolverFailure(t *testing.T) {
	resolverErr := errors.New("connection reset")
	svc := NewAuthorizationService(&fakeMemberResolver{err: resolverErr})
	if _, err := svc.RequireMember(context.Background(), 101, 1); !errors.Is(err, resolverErr) {
		t.Fatalf("expected the resolver error to pass through, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	resolver := &fakeMemberResolver{members: map[int64]*models.Member{
		101: {ID: 1, CommunityID: 1, UserID: 101, Role: models.RoleGuard, Status: models.MemberApproved},
	}}
	svc := NewAuthorizationService(resolver)

	if _, err := svc.RequireRole(context.Background(), 101, 1, models.RoleGuard, models.RoleHeadOfSecurity); err != nil {
		t.Fatalf("expected guard to satisfy the guard role, got %v", err)
	}
	if _, err := svc.RequireRole(context.Background(), 101, 1, models.RoleManager); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for a guard requiring manager, got %v", err)
	}
}

func TestRequireHouseholdHead(t *testing.T) {
	resolver := &fakeMemberResolver{members: map[int64]*models.Member{
		101: {ID: 1, CommunityID: 1, UserID: 101, Role: models.RoleResident, Status: models.MemberApproved,
			HouseholdID: int64Ptr(20), IsHouseholdHead: true},
		102: {ID: 2, CommunityID: 1, UserID: 102, Role: models.RoleResident, Status: models.MemberApproved,
			HouseholdID: int64Ptr(20)},
	}}
	svc := NewAuthorizationService(resolver)

	if _, err := svc.RequireHouseholdHead(context.Background(), 101, 1, 20); err != nil {
		t.Fatalf("expected the head to pass, got %v", err)
	}
	if _, err := svc.RequireHouseholdHead(context.Background(), 101, 1, 99); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected denial for another household, got %v", err)
	}
	if _, err := svc.RequireHouseholdHead(context.Background(), 102, 1, 20); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected denial for a non-head resident, got %v", err)
	}
}
