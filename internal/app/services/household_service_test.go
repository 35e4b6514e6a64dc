package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/notify"
)

// householdFixture is an in-memory backend implementing every store the
// household engine touches. Its TransferHead and AdmitMember mirror the
// repository's transactional semantics: validate first, then mutate, so
// a failed call leaves everything untouched.
type householdFixture struct {
	mu          sync.Mutex
	communities map[int64]*models.Community
	households  map[int64]*models.Household
	members     map[int64]*models.Member
	users       map[int64]*models.User
	invitations map[int64]*models.Invitation
	nextID      int64
	transferErr error
}

func newHouseholdFixture() *householdFixture {
	return &householdFixture{
		communities: map[int64]*models.Community{},
		households:  map[int64]*models.Household{},
		members:     map[int64]*models.Member{},
		users:       map[int64]*models.User{},
		invitations: map[int64]*models.Invitation{},
		nextID:      1000,
	}
}

func (f *householdFixture) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *householdFixture) CreateHousehold(_ context.Context, household *models.Household) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	household.ID = f.id()
	f.households[household.ID] = household
	return household.ID, nil
}

func (f *householdFixture) GetHouseholdByID(_ context.Context, id int64) (*models.Household, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.households[id]
	if !ok {
		return nil, apperrors.ErrHouseholdNotFound
	}
	copied := *h
	return &copied, nil
}

func (f *householdFixture) GetHouseholdsByCommunity(_ context.Context, communityID int64) ([]*models.Household, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Household
	for _, h := range f.households {
		if h.CommunityID == communityID {
			copied := *h
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *householdFixture) UpdateStatus(_ context.Context, id int64, status models.HouseholdStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.households[id]
	if !ok {
		return apperrors.ErrHouseholdNotFound
	}
	h.Status = status
	return nil
}

func (f *householdFixture) TransferHead(_ context.Context, householdID, newHeadMemberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return f.transferErr
	}
	target, ok := f.members[newHeadMemberID]
	if !ok || target.HouseholdID == nil || *target.HouseholdID != householdID {
		return apperrors.ErrMemberNotInHousehold
	}
	for _, m := range f.members {
		if m.HouseholdID != nil && *m.HouseholdID == householdID {
			m.IsHouseholdHead = false
		}
	}
	target.IsHouseholdHead = true
	return nil
}

func (f *householdFixture) AdmitMember(_ context.Context, memberID, householdID int64, maxResidents int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.households[householdID]
	if !ok {
		return apperrors.ErrHouseholdNotFound
	}
	if h.Status == models.HouseholdSuspended {
		return apperrors.ErrHouseholdSuspended
	}
	count := 0
	for _, m := range f.members {
		if m.HouseholdID != nil && *m.HouseholdID == householdID {
			count++
		}
	}
	if count >= maxResidents {
		return apperrors.ErrCapacityExceeded
	}
	member, ok := f.members[memberID]
	if !ok || member.CommunityID != h.CommunityID {
		return apperrors.ErrMemberNotFound
	}
	if member.HouseholdID != nil {
		return apperrors.ErrAlreadyAssigned
	}
	member.HouseholdID = &householdID
	member.IsHouseholdHead = false
	return nil
}

func (f *householdFixture) CreateMember(_ context.Context, member *models.Member) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member.ID = f.id()
	f.members[member.ID] = member
	return member.ID, nil
}

func (f *householdFixture) GetMemberByID(_ context.Context, id int64) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return nil, apperrors.ErrMemberNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *householdFixture) GetMemberByCommunityAndUser(_ context.Context, communityID, userID int64) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.CommunityID == communityID && m.UserID == userID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperrors.ErrMemberNotFound
}

func (f *householdFixture) GetMembersByHousehold(_ context.Context, householdID int64) ([]*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Member
	for _, m := range f.members {
		if m.HouseholdID != nil && *m.HouseholdID == householdID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *householdFixture) ClearHousehold(_ context.Context, memberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberID]
	if !ok {
		return apperrors.ErrMemberNotFound
	}
	m.HouseholdID = nil
	m.IsHouseholdHead = false
	return nil
}

func (f *householdFixture) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *householdFixture) CreateUser(_ context.Context, user *models.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.id()
	f.users[user.ID] = user
	return user.ID, nil
}

func (f *householdFixture) ActivateUser(_ context.Context, userID int64, firstName, lastName, hashedPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.FirstName = firstName
	u.LastName = lastName
	u.Password = hashedPassword
	u.IsActive = true
	return nil
}

func (f *householdFixture) GetCommunityByID(_ context.Context, id int64) (*models.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.communities[id]
	if !ok {
		return nil, apperrors.ErrCommunityNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *householdFixture) CreateInvitation(_ context.Context, invitation *models.Invitation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	invitation.ID = f.id()
	f.invitations[invitation.ID] = invitation
	return invitation.ID, nil
}

func (f *householdFixture) GetInvitationByToken(_ context.Context, token string) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, apperrors.ErrInvitationNotFound
}

func (f *householdFixture) MarkAccepted(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invitations[id]
	if !ok {
		return apperrors.ErrInvitationNotFound
	}
	now := time.Now()
	inv.AcceptedAt = &now
	return nil
}

// addMember inserts an approved member, optionally linked to a household.
func (f *householdFixture) addMember(id, communityID, userID int64, role models.MemberRole, householdID int64, head bool) *models.Member {
	m := &models.Member{
		ID:          id,
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		Status:      models.MemberApproved,
	}
	if householdID != 0 {
		hid := householdID
		m.HouseholdID = &hid
		m.IsHouseholdHead = head
	}
	f.members[id] = m
	return m
}

type fakeEmailSender struct {
	invitations []string
	err         error
}

func (f *fakeEmailSender) SendInvitationEmail(toEmail, householdName, communityName, token string) error {
	if f.err != nil {
		return f.err
	}
	f.invitations = append(f.invitations, toEmail)
	return nil
}

func (f *fakeEmailSender) SendApprovalEmail(toEmail, toName, communityName string) error {
	return nil
}

// standardFixture: community 1 (cap 3), household 20 with head member 2
// (user 102) and resident member 3 (user 103), manager member 1 (user
// 101), unattached approved resident member 4 (user 104).
func standardFixture() *householdFixture {
	f := newHouseholdFixture()
	f.communities[1] = &models.Community{ID: 1, Name: "Pine Valley", MaxResidentsPerHousehold: 3}
	f.households[20] = &models.Household{ID: 20, CommunityID: 1, Name: "Unit-9", Status: models.HouseholdActive}
	f.addMember(1, 1, 101, models.RoleManager, 0, false)
	f.addMember(2, 1, 102, models.RoleResident, 20, true)
	f.addMember(3, 1, 103, models.RoleResident, 20, false)
	f.addMember(4, 1, 104, models.RoleResident, 0, false)
	return f
}

func newHouseholdServiceUnderTest(f *householdFixture, sender *fakeEmailSender, notifier *fakeNotifier) HouseholdService {
	return NewHouseholdService(f, f, f, f, f, sender, notifier, zerolog.Nop())
}

func TestChangeHeadByManager(t *testing.T) {
	f := standardFixture()
	notifier := &fakeNotifier{}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, notifier)

	if err := svc.ChangeHead(context.Background(), 101, 1, 20, 3); err != nil {
		t.Fatalf("change head: %v", err)
	}
	if f.members[2].IsHouseholdHead {
		t.Fatal("expected previous head demoted")
	}
	if !f.members[3].IsHouseholdHead {
		t.Fatal("expected member 3 promoted to head")
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != notify.EventHeadChanged {
		t.Fatalf("expected head-changed event, got %+v", notifier.events)
	}
}

func TestChangeHeadByCurrentHead(t *testing.T) {
	f := standardFixture()
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	// user 102 is the head of household 20.
	if err := svc.ChangeHead(context.Background(), 102, 1, 20, 3); err != nil {
		t.Fatalf("change head by current head: %v", err)
	}
	if !f.members[3].IsHouseholdHead {
		t.Fatal("expected member 3 promoted")
	}
}

func TestChangeHeadByPlainResidentDenied(t *testing.T) {
	f := standardFixture()
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.ChangeHead(context.Background(), 103, 1, 20, 3)
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestChangeHeadTargetOutsideHousehold(t *testing.T) {
	f := standardFixture()
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.ChangeHead(context.Background(), 101, 1, 20, 4)
	if !errors.Is(err, apperrors.ErrMemberNotInHousehold) {
		t.Fatalf("expected ErrMemberNotInHousehold, got %v", err)
	}
	if !f.members[2].IsHouseholdHead {
		t.Fatal("failed transfer must leave the current head in place")
	}
}

func TestChangeHeadLostRaceSurfacesConflict(t *testing.T) {
	f := standardFixture()
	// The repository reports the losing side of two simultaneous
	// transfers as a conflict rather than a raw constraint violation.
	f.transferErr = apperrors.NewConflictError("household head changed concurrently, retry the transfer")
	notifier := &fakeNotifier{}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, notifier)

	err := svc.ChangeHead(context.Background(), 101, 1, 20, 3)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if !f.members[2].IsHouseholdHead {
		t.Fatal("lost transfer must leave the current head in place")
	}
	if len(notifier.events) != 0 {
		t.Fatalf("lost transfer must not publish events, got %+v", notifier.events)
	}
}

func TestAdmitMemberFillsLastSlot(t *testing.T) {
	f := standardFixture()
	notifier := &fakeNotifier{}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, notifier)

	// Household 20 has 2 of 3 residents; member 4 takes the last slot.
	if err := svc.AdmitMember(context.Background(), 101, 1, 20, 4); err != nil {
		t.Fatalf("admit member: %v", err)
	}
	if f.members[4].HouseholdID == nil || *f.members[4].HouseholdID != 20 {
		t.Fatal("expected member 4 linked to household 20")
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != notify.EventMemberAdmitted {
		t.Fatalf("expected admission event, got %+v", notifier.events)
	}
}

func TestAdmitMemberAtCapacity(t *testing.T) {
	f := standardFixture()
	f.addMember(5, 1, 105, models.RoleResident, 20, false) // household now full
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.AdmitMember(context.Background(), 101, 1, 20, 4)
	if !errors.Is(err, apperrors.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if f.members[4].HouseholdID != nil {
		t.Fatal("capacity failure must not link the member")
	}
}

func TestAdmitMemberSuspendedHousehold(t *testing.T) {
	f := standardFixture()
	f.households[20].Status = models.HouseholdSuspended
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.AdmitMember(context.Background(), 101, 1, 20, 4)
	if !errors.Is(err, apperrors.ErrHouseholdSuspended) {
		t.Fatalf("expected ErrHouseholdSuspended, got %v", err)
	}
}

func TestAdmitMemberNotApproved(t *testing.T) {
	f := standardFixture()
	f.members[4].Status = models.MemberPending
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.AdmitMember(context.Background(), 101, 1, 20, 4)
	if err == nil {
		t.Fatal("expected admission of a pending member to fail")
	}
}

func TestAdmitMemberAlreadyAssigned(t *testing.T) {
	f := standardFixture()
	f.households[21] = &models.Household{ID: 21, CommunityID: 1, Name: "Unit-10", Status: models.HouseholdActive}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	// member 3 already lives in household 20.
	err := svc.AdmitMember(context.Background(), 101, 1, 21, 3)
	if !errors.Is(err, apperrors.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
}

func TestRemoveMemberClearsHeadFlag(t *testing.T) {
	f := standardFixture()
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	if err := svc.RemoveMember(context.Background(), 101, 1, 2); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if f.members[2].HouseholdID != nil {
		t.Fatal("expected household link cleared")
	}
	if f.members[2].IsHouseholdHead {
		t.Fatal("an unlinked member must not keep the head flag")
	}
}

func TestRemoveMemberByForeignHeadDenied(t *testing.T) {
	f := standardFixture()
	f.households[21] = &models.Household{ID: 21, CommunityID: 1, Name: "Unit-10", Status: models.HouseholdActive}
	f.addMember(6, 1, 106, models.RoleResident, 21, true) // head of the other household
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.RemoveMember(context.Background(), 106, 1, 3)
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRemoveMemberNotInHousehold(t *testing.T) {
	f := standardFixture()
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.RemoveMember(context.Background(), 101, 1, 4)
	if !errors.Is(err, apperrors.ErrMemberNotInHousehold) {
		t.Fatalf("expected ErrMemberNotInHousehold, got %v", err)
	}
}

func TestInviteOrAttachExistingUser(t *testing.T) {
	f := standardFixture()
	f.users[200] = &models.User{ID: 200, Email: "neighbor@example.com", IsActive: true}
	sender := &fakeEmailSender{}
	svc := newHouseholdServiceUnderTest(f, sender, &fakeNotifier{})

	resp, err := svc.InviteOrAttach(context.Background(), 102, 1, 20, "Neighbor@Example.com")
	if err != nil {
		t.Fatalf("invite or attach: %v", err)
	}
	if resp.Invited {
		t.Fatal("an existing user must be attached without an invitation")
	}
	member := f.members[resp.MemberID]
	if member == nil || member.UserID != 200 {
		t.Fatalf("expected a member record for user 200, got %+v", member)
	}
	if member.Status != models.MemberApproved || member.Role != models.RoleResident {
		t.Fatalf("expected an approved resident, got %+v", member)
	}
	if member.HouseholdID == nil || *member.HouseholdID != 20 {
		t.Fatal("expected the member attached to household 20")
	}
	if len(sender.invitations) != 0 {
		t.Fatalf("no email expected for existing users, sent %v", sender.invitations)
	}
}

func TestInviteOrAttachUnknownEmail(t *testing.T) {
	f := standardFixture()
	sender := &fakeEmailSender{}
	svc := newHouseholdServiceUnderTest(f, sender, &fakeNotifier{})

	resp, err := svc.InviteOrAttach(context.Background(), 102, 1, 20, "new@example.com")
	if err != nil {
		t.Fatalf("invite or attach: %v", err)
	}
	if !resp.Invited {
		t.Fatal("expected a new invitation for an unknown email")
	}
	member := f.members[resp.MemberID]
	user := f.users[member.UserID]
	if user == nil || user.IsActive {
		t.Fatalf("expected an inactive placeholder user, got %+v", user)
	}
	if len(f.invitations) != 1 {
		t.Fatalf("expected one invitation record, got %d", len(f.invitations))
	}
	if len(sender.invitations) != 1 || sender.invitations[0] != "new@example.com" {
		t.Fatalf("expected invitation email to new@example.com, sent %v", sender.invitations)
	}
}

func TestInviteOrAttachAlreadyAssigned(t *testing.T) {
	f := standardFixture()
	f.users[103] = &models.User{ID: 103, Email: "resident@example.com", IsActive: true}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	_, err := svc.InviteOrAttach(context.Background(), 102, 1, 20, "resident@example.com")
	if !errors.Is(err, apperrors.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
}

func TestInviteOrAttachEmailFailureKeepsAttachment(t *testing.T) {
	f := standardFixture()
	sender := &fakeEmailSender{err: errors.New("smtp down")}
	svc := newHouseholdServiceUnderTest(f, sender, &fakeNotifier{})

	resp, err := svc.InviteOrAttach(context.Background(), 102, 1, 20, "new@example.com")
	if err != nil {
		t.Fatalf("expected attachment to survive an email failure, got %v", err)
	}
	member := f.members[resp.MemberID]
	if member.HouseholdID == nil || *member.HouseholdID != 20 {
		t.Fatal("expected the member attached despite the email failure")
	}
}

func TestAcceptInvitation(t *testing.T) {
	f := standardFixture()
	f.users[200] = &models.User{ID: 200, Email: "new@example.com", IsActive: false}
	f.invitations[300] = &models.Invitation{
		ID: 300, CommunityID: 1, HouseholdID: 20,
		Email: "new@example.com", Token: "tok-abc", InvitedBy: 2,
	}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	if err := svc.AcceptInvitation(context.Background(), "tok-abc", "Ada", "Yilmaz", "s3cret-pass"); err != nil {
		t.Fatalf("accept invitation: %v", err)
	}
	user := f.users[200]
	if !user.IsActive || user.FirstName != "Ada" || user.LastName != "Yilmaz" {
		t.Fatalf("expected activated user with names, got %+v", user)
	}
	if f.invitations[300].AcceptedAt == nil {
		t.Fatal("expected invitation marked accepted")
	}

	// A second accept of the same token must fail.
	err := svc.AcceptInvitation(context.Background(), "tok-abc", "Ada", "Yilmaz", "s3cret-pass")
	if !errors.Is(err, apperrors.ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound on reuse, got %v", err)
	}
}

func TestAdmitMemberConcurrentAdmissionsRespectCapacity(t *testing.T) {
	f := newHouseholdFixture()
	f.communities[1] = &models.Community{ID: 1, Name: "Pine Valley", MaxResidentsPerHousehold: 3}
	f.households[30] = &models.Household{ID: 30, CommunityID: 1, Name: "Unit-12", Status: models.HouseholdActive}
	f.addMember(1, 1, 101, models.RoleManager, 0, false)
	candidates := []int64{11, 12, 13, 14, 15}
	for i, id := range candidates {
		f.addMember(id, 1, 200+int64(i), models.RoleResident, 0, false)
	}
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	var wg sync.WaitGroup
	results := make(chan error, len(candidates))
	for _, memberID := range candidates {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			results <- svc.AdmitMember(context.Background(), 101, 1, 30, id)
		}(memberID)
	}
	wg.Wait()
	close(results)

	admitted, refused := 0, 0
	for err := range results {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, apperrors.ErrCapacityExceeded):
			refused++
		default:
			t.Fatalf("unexpected admission error: %v", err)
		}
	}
	if admitted != 3 || refused != 2 {
		t.Fatalf("expected 3 admissions and 2 refusals, got %d/%d", admitted, refused)
	}

	linked := 0
	for _, m := range f.members {
		if m.HouseholdID != nil && *m.HouseholdID == 30 {
			linked++
		}
	}
	if linked != 3 {
		t.Fatalf("expected exactly 3 linked residents, got %d", linked)
	}
}

func TestSetHouseholdStatusManagerOnly(t *testing.T) {
	f := standardFixture()
	svc := newHouseholdServiceUnderTest(f, &fakeEmailSender{}, &fakeNotifier{})

	err := svc.SetHouseholdStatus(context.Background(), 102, 1, 20, models.HouseholdSuspended)
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for a head, got %v", err)
	}

	if err := svc.SetHouseholdStatus(context.Background(), 101, 1, 20, models.HouseholdSuspended); err != nil {
		t.Fatalf("suspend household: %v", err)
	}
	if f.households[20].Status != models.HouseholdSuspended {
		t.Fatalf("expected suspended household, got %q", f.households[20].Status)
	}
}
