package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/notify"
)

// fakeNotifier records published events. Shared by the service tests in
// this package; safe for the concurrent scenarios.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (f *fakeNotifier) Publish(_ context.Context, evt notify.Event) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeNotifier) Close() error { return nil }

type fakeApprovalMemberStore struct {
	members       map[int64]*models.Member
	statusErr     error
	linkErr       error
	linkedTo      map[int64]int64
	statusUpdates map[int64]models.MemberStatus
}

func newFakeApprovalMemberStore(members ...*models.Member) *fakeApprovalMemberStore {
	store := &fakeApprovalMemberStore{
		members:       map[int64]*models.Member{},
		linkedTo:      map[int64]int64{},
		statusUpdates: map[int64]models.MemberStatus{},
	}
	for _, m := range members {
		store.members[m.ID] = m
	}
	return store
}

func (f *fakeApprovalMemberStore) GetMemberByID(_ context.Context, id int64) (*models.Member, error) {
	member, ok := f.members[id]
	if !ok {
		return nil, apperrors.ErrMemberNotFound
	}
	copied := *member
	return &copied, nil
}

func (f *fakeApprovalMemberStore) UpdateStatus(_ context.Context, memberID int64, status models.MemberStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	member, ok := f.members[memberID]
	if !ok {
		return apperrors.ErrMemberNotFound
	}
	member.Status = status
	f.statusUpdates[memberID] = status
	return nil
}

func (f *fakeApprovalMemberStore) LinkHousehold(_ context.Context, memberID, householdID int64) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	member, ok := f.members[memberID]
	if !ok {
		return apperrors.ErrMemberNotFound
	}
	// First head wins; a later declared head joins without the flag.
	for _, other := range f.members {
		if other.ID != memberID && other.HouseholdID != nil && *other.HouseholdID == householdID && other.IsHouseholdHead {
			member.IsHouseholdHead = false
		}
	}
	member.HouseholdID = &householdID
	f.linkedTo[memberID] = householdID
	return nil
}

type fakeApprovalHouseholdStore struct {
	households map[string]*models.Household
	nextID     int64
	err        error
	created    []string
}

func newFakeApprovalHouseholdStore() *fakeApprovalHouseholdStore {
	return &fakeApprovalHouseholdStore{households: map[string]*models.Household{}, nextID: 100}
}

func (f *fakeApprovalHouseholdStore) GetOrCreateByName(_ context.Context, communityID int64, name string) (*models.Household, error) {
	if f.err != nil {
		return nil, f.err
	}
	if existing, ok := f.households[name]; ok {
		return existing, nil
	}
	f.nextID++
	household := &models.Household{
		ID:          f.nextID,
		CommunityID: communityID,
		Name:        name,
		Status:      models.HouseholdActive,
	}
	f.households[name] = household
	f.created = append(f.created, name)
	return household, nil
}

func newApprovalService(members *fakeApprovalMemberStore, households *fakeApprovalHouseholdStore, notifier *fakeNotifier) ApprovalService {
	return NewApprovalService(members, households, notifier, zerolog.Nop())
}

func TestApproveMemberPendingResident(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{
		ID:          10,
		CommunityID: 1,
		Status:      models.MemberPending,
		Role:        models.RoleResident,
	})
	households := newFakeApprovalHouseholdStore()
	notifier := &fakeNotifier{}

	svc := newApprovalService(members, households, notifier)
	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("approve member: %v", err)
	}
	if members.members[10].Status != models.MemberApproved {
		t.Fatalf("expected approved status, got %q", members.members[10].Status)
	}
	if len(households.created) != 0 {
		t.Fatalf("expected no household creation for a plain resident, created %v", households.created)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != notify.EventMemberApproved {
		t.Fatalf("expected one approval event, got %+v", notifier.events)
	}
}

func TestApproveMemberDeclaredHeadCreatesAndLinksHousehold(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{
		ID:              10,
		CommunityID:     1,
		Status:          models.MemberPending,
		Role:            models.RoleResident,
		UnitNumber:      "Unit-9",
		IsHouseholdHead: true,
	})
	households := newFakeApprovalHouseholdStore()
	notifier := &fakeNotifier{}

	svc := newApprovalService(members, households, notifier)
	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("approve member: %v", err)
	}
	if len(households.created) != 1 || households.created[0] != "Unit-9" {
		t.Fatalf("expected household Unit-9 created, got %v", households.created)
	}
	linkedID, ok := members.linkedTo[10]
	if !ok {
		t.Fatal("expected member linked to household")
	}
	if linkedID != households.households["Unit-9"].ID {
		t.Fatalf("linked to household %d, want %d", linkedID, households.households["Unit-9"].ID)
	}
}

func TestApproveMemberReusesExistingHousehold(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{
		ID:              10,
		CommunityID:     1,
		Status:          models.MemberPending,
		UnitNumber:      "Unit-9",
		IsHouseholdHead: true,
	})
	households := newFakeApprovalHouseholdStore()
	households.households["Unit-9"] = &models.Household{ID: 77, CommunityID: 1, Name: "Unit-9"}
	notifier := &fakeNotifier{}

	svc := newApprovalService(members, households, notifier)
	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("approve member: %v", err)
	}
	if len(households.created) != 0 {
		t.Fatalf("expected no new household, created %v", households.created)
	}
	if members.linkedTo[10] != 77 {
		t.Fatalf("expected link to household 77, got %d", members.linkedTo[10])
	}
}

func TestApproveSecondHeadSharesHousehold(t *testing.T) {
	members := newFakeApprovalMemberStore(
		&models.Member{ID: 10, CommunityID: 1, Status: models.MemberPending, UnitNumber: "Unit-9", IsHouseholdHead: true},
		&models.Member{ID: 11, CommunityID: 1, Status: models.MemberPending, UnitNumber: "Unit-9", IsHouseholdHead: true},
	)
	households := newFakeApprovalHouseholdStore()
	svc := newApprovalService(members, households, &fakeNotifier{})

	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("approve first head: %v", err)
	}
	if err := svc.ApproveMember(context.Background(), 1, 11); err != nil {
		t.Fatalf("approve second head: %v", err)
	}
	if len(households.created) != 1 {
		t.Fatalf("two approvals for the same unit must share one household, created %v", households.created)
	}
	if members.linkedTo[10] != members.linkedTo[11] {
		t.Fatalf("expected both heads linked to the same household, got %d and %d",
			members.linkedTo[10], members.linkedTo[11])
	}
	if !members.members[10].IsHouseholdHead {
		t.Fatal("first approved head must keep headship")
	}
	if members.members[11].IsHouseholdHead {
		t.Fatal("second declared head must join as a regular resident")
	}
}

func TestApproveMemberHeadWithoutUnitNumberSkipsHousehold(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{
		ID:              10,
		CommunityID:     1,
		Status:          models.MemberPending,
		IsHouseholdHead: true,
	})
	households := newFakeApprovalHouseholdStore()

	svc := newApprovalService(members, households, &fakeNotifier{})
	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("approve member: %v", err)
	}
	if len(households.created) != 0 {
		t.Fatalf("expected no household without a unit number, created %v", households.created)
	}
	if members.members[10].Status != models.MemberApproved {
		t.Fatalf("expected approval to stand, got %q", members.members[10].Status)
	}
}

func TestApproveMemberHouseholdFailureDoesNotRollBackApproval(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{
		ID:              10,
		CommunityID:     1,
		Status:          models.MemberPending,
		UnitNumber:      "Unit-9",
		IsHouseholdHead: true,
	})
	households := newFakeApprovalHouseholdStore()
	households.err = errors.New("household table unavailable")

	svc := newApprovalService(members, households, &fakeNotifier{})
	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("expected approval to succeed despite household failure, got %v", err)
	}
	if members.members[10].Status != models.MemberApproved {
		t.Fatalf("expected approved status, got %q", members.members[10].Status)
	}
	if len(members.linkedTo) != 0 {
		t.Fatalf("expected member left unlinked, got %v", members.linkedTo)
	}
}

func TestApproveMemberLinkFailureDoesNotRollBackApproval(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{
		ID:              10,
		CommunityID:     1,
		Status:          models.MemberPending,
		UnitNumber:      "Unit-9",
		IsHouseholdHead: true,
	})
	members.linkErr = errors.New("link write failed")
	households := newFakeApprovalHouseholdStore()

	svc := newApprovalService(members, households, &fakeNotifier{})
	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("expected approval to succeed despite link failure, got %v", err)
	}
	if members.members[10].Status != models.MemberApproved {
		t.Fatalf("expected approved status, got %q", members.members[10].Status)
	}
}

func TestApproveMemberNotPending(t *testing.T) {
	for _, status := range []models.MemberStatus{models.MemberApproved, models.MemberRejected, models.MemberSuspended} {
		members := newFakeApprovalMemberStore(&models.Member{ID: 10, CommunityID: 1, Status: status})
		svc := newApprovalService(members, newFakeApprovalHouseholdStore(), &fakeNotifier{})

		err := svc.ApproveMember(context.Background(), 1, 10)
		if !errors.Is(err, apperrors.ErrMemberNotPending) {
			t.Fatalf("status %q: expected ErrMemberNotPending, got %v", status, err)
		}
	}
}

func TestApproveMemberWrongCommunity(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{ID: 10, CommunityID: 2, Status: models.MemberPending})
	svc := newApprovalService(members, newFakeApprovalHouseholdStore(), &fakeNotifier{})

	err := svc.ApproveMember(context.Background(), 1, 10)
	if !errors.Is(err, apperrors.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound for cross-community approval, got %v", err)
	}
}

func TestRejectMember(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{ID: 10, CommunityID: 1, Status: models.MemberPending})
	notifier := &fakeNotifier{}
	svc := newApprovalService(members, newFakeApprovalHouseholdStore(), notifier)

	if err := svc.RejectMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("reject member: %v", err)
	}
	if members.members[10].Status != models.MemberRejected {
		t.Fatalf("expected rejected status, got %q", members.members[10].Status)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != notify.EventMemberRejected {
		t.Fatalf("expected one rejection event, got %+v", notifier.events)
	}

	// Rejection is terminal; a second decision must fail.
	if err := svc.ApproveMember(context.Background(), 1, 10); !errors.Is(err, apperrors.ErrMemberNotPending) {
		t.Fatalf("expected ErrMemberNotPending after rejection, got %v", err)
	}
}

func TestApproveMemberNotifierFailureDoesNotFailApproval(t *testing.T) {
	members := newFakeApprovalMemberStore(&models.Member{ID: 10, CommunityID: 1, Status: models.MemberPending})
	notifier := &fakeNotifier{err: errors.New("broker down")}
	svc := newApprovalService(members, newFakeApprovalHouseholdStore(), notifier)

	if err := svc.ApproveMember(context.Background(), 1, 10); err != nil {
		t.Fatalf("expected approval to succeed with broken notifier, got %v", err)
	}
}
