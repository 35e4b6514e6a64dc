package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/app/models/dto"
	"github.com/selimd/porta/internal/pkg/apperrors"
)

// fakeCodeStore reproduces the repository's conditional-write semantics
// for usage consumption: the checks run against stored state, not the
// snapshot the service read.
type fakeCodeStore struct {
	mu          sync.Mutex
	codes       map[string]*models.AccessCode
	registerErr error
	entries     []*models.EntryLog
}

func newFakeCodeStore(codes ...*models.AccessCode) *fakeCodeStore {
	store := &fakeCodeStore{codes: map[string]*models.AccessCode{}}
	for _, c := range codes {
		store.codes[c.AccessCode] = c
	}
	return store
}

func (f *fakeCodeStore) GetAccessCodeByCode(_ context.Context, communityID int64, accessCode string) (*models.AccessCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[accessCode]
	if !ok || code.CommunityID != communityID {
		return nil, apperrors.ErrAccessCodeNotFound
	}
	copied := *code
	return &copied, nil
}

func (f *fakeCodeStore) RegisterEntry(_ context.Context, code *models.AccessCode, entry *models.EntryLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return 0, f.registerErr
	}
	stored, ok := f.codes[code.AccessCode]
	if !ok {
		return 0, apperrors.ErrAccessCodeNotFound
	}
	if stored.IsOneTime {
		if stored.UsedAt != nil {
			return 0, apperrors.ErrCodeAlreadyUsed
		}
		usedAt := entry.EnteredAt
		stored.UsedAt = &usedAt
		stored.UsageCount++
	} else if stored.MaxUses != nil {
		if stored.UsageCount >= *stored.MaxUses {
			return 0, apperrors.ErrCodeLimitExhausted
		}
		stored.UsageCount++
	} else {
		stored.UsageCount++
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return entry.ID, nil
}

type fakeEntryLogStore struct {
	openSessions map[int64]*models.EntryLog
	closeErr     error
	logs         []*models.EntryLog
}

func newFakeEntryLogStore() *fakeEntryLogStore {
	return &fakeEntryLogStore{openSessions: map[int64]*models.EntryLog{}}
}

func (f *fakeEntryLogStore) CloseOpenSession(_ context.Context, accessCodeID int64, exitPoint string) (*models.EntryLog, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	open, ok := f.openSessions[accessCodeID]
	if !ok {
		return nil, nil
	}
	now := time.Now()
	open.ExitedAt = &now
	if exitPoint != "" {
		open.ExitPoint = &exitPoint
	}
	delete(f.openSessions, accessCodeID)
	return open, nil
}

func (f *fakeEntryLogStore) GetEntryLogsByCommunity(_ context.Context, communityID int64, accessCodeID int64, openOnly bool, page, pageSize int) ([]*models.EntryLog, int, error) {
	var matched []*models.EntryLog
	for _, l := range f.logs {
		if l.CommunityID != communityID {
			continue
		}
		if accessCodeID != 0 && l.AccessCodeID != accessCodeID {
			continue
		}
		if openOnly && l.ExitedAt != nil {
			continue
		}
		matched = append(matched, l)
	}
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func intPtr(v int) *int { return &v }

func visitorCode(id int64, code string) *models.AccessCode {
	return &models.AccessCode{
		ID:          id,
		CommunityID: 1,
		HostID:      50,
		VisitorName: "Ayse Demir",
		AccessCode:  code,
		CodeType:    models.CodeTypeVisitor,
		ValidFrom:   time.Now().Add(-time.Hour),
		ValidUntil:  time.Now().Add(time.Hour),
		IsActive:    true,
	}
}

func newVerification(codes *fakeCodeStore, entries *fakeEntryLogStore, notifier *fakeNotifier) VerificationService {
	return NewVerificationService(codes, entries, notifier, zerolog.Nop())
}

func verify(t *testing.T, svc VerificationService, code string) *dto.VerificationResponse {
	t.Helper()
	resp, err := svc.Verify(context.Background(), 1, 7, &dto.VerifyRequest{AccessCode: code, EntryPoint: "Main Gate"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return resp
}

func TestVerifyUnknownCode(t *testing.T) {
	svc := newVerification(newFakeCodeStore(), newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted {
		t.Fatal("expected denial for unknown code")
	}
	if resp.Reason != DenialInvalidCode {
		t.Fatalf("expected reason %q, got %q", DenialInvalidCode, resp.Reason)
	}
	if resp.VisitorName != "" {
		t.Fatalf("unknown code must not leak a visitor name, got %q", resp.VisitorName)
	}
}

func TestVerifyWrongCommunity(t *testing.T) {
	code := visitorCode(1, "123456")
	code.CommunityID = 2
	svc := newVerification(newFakeCodeStore(code), newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialInvalidCode {
		t.Fatalf("a code from another community must read as invalid, got %+v", resp)
	}
}

func TestVerifySuspendedCode(t *testing.T) {
	code := visitorCode(1, "123456")
	code.IsActive = false
	svc := newVerification(newFakeCodeStore(code), newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialSuspended {
		t.Fatalf("expected suspended denial, got %+v", resp)
	}
	if resp.VisitorName != "Ayse Demir" {
		t.Fatalf("known-code denial should echo the visitor name, got %q", resp.VisitorName)
	}
}

func TestVerifyBeforeWindow(t *testing.T) {
	code := visitorCode(1, "123456")
	code.ValidFrom = time.Now().Add(time.Hour)
	code.ValidUntil = time.Now().Add(2 * time.Hour)
	svc := newVerification(newFakeCodeStore(code), newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialNotYetActive {
		t.Fatalf("expected not_yet_active denial, got %+v", resp)
	}
	if !strings.Contains(resp.Message, code.ValidFrom.Format(time.RFC3339)) {
		t.Fatalf("expected activation time in message, got %q", resp.Message)
	}
}

func TestVerifyAfterWindow(t *testing.T) {
	code := visitorCode(1, "123456")
	code.ValidFrom = time.Now().Add(-2 * time.Hour)
	code.ValidUntil = time.Now().Add(-time.Hour)
	svc := newVerification(newFakeCodeStore(code), newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialExpired {
		t.Fatalf("expected expired denial, got %+v", resp)
	}
}

func TestVerifyOneTimeCode(t *testing.T) {
	code := visitorCode(1, "123456")
	code.IsOneTime = true
	codes := newFakeCodeStore(code)
	notifier := &fakeNotifier{}
	svc := newVerification(codes, newFakeEntryLogStore(), notifier)

	resp := verify(t, svc, "123456")
	if !resp.Granted {
		t.Fatalf("expected grant, got %+v", resp)
	}
	if codes.codes["123456"].UsedAt == nil {
		t.Fatal("expected one-time code marked used")
	}
	if len(codes.entries) != 1 {
		t.Fatalf("expected one entry log, got %d", len(codes.entries))
	}
	if codes.entries[0].GuardID != 7 {
		t.Fatalf("expected guard id recorded, got %d", codes.entries[0].GuardID)
	}

	// Second scan of the same code must be refused.
	resp = verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialAlreadyUsed {
		t.Fatalf("expected already_used on second scan, got %+v", resp)
	}
	if len(codes.entries) != 1 {
		t.Fatalf("denied scan must not add an entry log, got %d", len(codes.entries))
	}
}

func TestVerifyOneTimeCodeConcurrentScansGrantOnce(t *testing.T) {
	code := visitorCode(1, "123456")
	code.IsOneTime = true
	codes := newFakeCodeStore(code)
	svc := newVerification(codes, newFakeEntryLogStore(), &fakeNotifier{})

	var wg sync.WaitGroup
	results := make(chan *dto.VerificationResponse, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Verify(context.Background(), 1, 7, &dto.VerifyRequest{AccessCode: "123456"})
			if err != nil {
				t.Errorf("verify: %v", err)
				return
			}
			results <- resp
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for resp := range results {
		if resp.Granted {
			granted++
		} else if resp.Reason != DenialAlreadyUsed {
			t.Fatalf("losing scan should read already_used, got %q", resp.Reason)
		}
	}
	if granted != 1 {
		t.Fatalf("a one-time code must grant exactly once, granted %d times", granted)
	}
	if len(codes.entries) != 1 {
		t.Fatalf("expected exactly one entry log, got %d", len(codes.entries))
	}
}

func TestVerifyCappedCodeCountsDown(t *testing.T) {
	code := visitorCode(1, "123456")
	code.MaxUses = intPtr(2)
	codes := newFakeCodeStore(code)
	svc := newVerification(codes, newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if !resp.Granted {
		t.Fatalf("expected grant, got %+v", resp)
	}
	if resp.RemainingUses == nil || *resp.RemainingUses != 1 {
		t.Fatalf("expected 1 remaining use, got %v", resp.RemainingUses)
	}

	resp = verify(t, svc, "123456")
	if !resp.Granted {
		t.Fatalf("expected second grant, got %+v", resp)
	}
	if resp.RemainingUses == nil || *resp.RemainingUses != 0 {
		t.Fatalf("expected 0 remaining uses, got %v", resp.RemainingUses)
	}

	resp = verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialLimitExhausted {
		t.Fatalf("expected limit_exhausted on third scan, got %+v", resp)
	}
}

func TestVerifyUnlimitedCode(t *testing.T) {
	codes := newFakeCodeStore(visitorCode(1, "123456"))
	svc := newVerification(codes, newFakeEntryLogStore(), &fakeNotifier{})

	for i := 0; i < 5; i++ {
		resp := verify(t, svc, "123456")
		if !resp.Granted {
			t.Fatalf("scan %d: expected grant, got %+v", i, resp)
		}
		if resp.RemainingUses != nil {
			t.Fatalf("uncapped code must not report remaining uses, got %v", resp.RemainingUses)
		}
	}
	if codes.codes["123456"].UsageCount != 5 {
		t.Fatalf("expected 5 recorded uses, got %d", codes.codes["123456"].UsageCount)
	}
}

func TestVerifyServiceProviderClockInAndOut(t *testing.T) {
	code := visitorCode(1, "123456")
	code.CodeType = models.CodeTypeServiceProvider
	code.VisitorName = "Cleaner - Fatma"
	codes := newFakeCodeStore(code)
	entries := newFakeEntryLogStore()
	svc := newVerification(codes, entries, &fakeNotifier{})

	// First scan clocks in through the normal entry path.
	resp := verify(t, svc, "123456")
	if !resp.Granted || resp.ClockedOut {
		t.Fatalf("expected clock-in grant, got %+v", resp)
	}
	if !strings.Contains(resp.Message, "clocked in") {
		t.Fatalf("expected clock-in message, got %q", resp.Message)
	}
	entries.openSessions[code.ID] = codes.entries[0]

	// Second scan closes the open session without consuming a use.
	usageBefore := codes.codes["123456"].UsageCount
	resp = verify(t, svc, "123456")
	if !resp.Granted || !resp.ClockedOut {
		t.Fatalf("expected clock-out grant, got %+v", resp)
	}
	if codes.codes["123456"].UsageCount != usageBefore {
		t.Fatal("clock-out must not consume a use")
	}
	if codes.entries[0].ExitedAt == nil {
		t.Fatal("expected the open session closed")
	}

	// Third scan opens a fresh session.
	resp = verify(t, svc, "123456")
	if !resp.Granted || resp.ClockedOut {
		t.Fatalf("expected a new clock-in, got %+v", resp)
	}
}

func TestVerifyExpiredProviderCannotClockOut(t *testing.T) {
	code := visitorCode(1, "123456")
	code.CodeType = models.CodeTypeServiceProvider
	code.ValidUntil = time.Now().Add(-time.Minute)
	entries := newFakeEntryLogStore()
	entries.openSessions[code.ID] = &models.EntryLog{ID: 1, AccessCodeID: code.ID, CommunityID: 1, EnteredAt: time.Now().Add(-2 * time.Hour)}
	svc := newVerification(newFakeCodeStore(code), entries, &fakeNotifier{})

	// The window check runs before the session toggle, so even an open
	// session stays open once the code expires.
	resp := verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialExpired {
		t.Fatalf("expected expired denial, got %+v", resp)
	}
	if _, stillOpen := entries.openSessions[code.ID]; !stillOpen {
		t.Fatal("expired scan must not close the session")
	}
}

func TestVerifyLogFailureDowngradesToDenial(t *testing.T) {
	codes := newFakeCodeStore(visitorCode(1, "123456"))
	codes.registerErr = errors.New("connection reset")
	svc := newVerification(codes, newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted {
		t.Fatal("a grant that could not be recorded must be denied")
	}
	if resp.Reason != DenialLogFailed {
		t.Fatalf("expected reason %q, got %q", DenialLogFailed, resp.Reason)
	}
}

func TestVerifyRegisterRaceMapsToFriendlyDenial(t *testing.T) {
	codes := newFakeCodeStore(visitorCode(1, "123456"))
	codes.registerErr = apperrors.ErrCodeAlreadyUsed
	svc := newVerification(codes, newFakeEntryLogStore(), &fakeNotifier{})

	resp := verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialAlreadyUsed {
		t.Fatalf("expected already_used from the write race, got %+v", resp)
	}

	codes.registerErr = apperrors.ErrCodeLimitExhausted
	resp = verify(t, svc, "123456")
	if resp.Granted || resp.Reason != DenialLimitExhausted {
		t.Fatalf("expected limit_exhausted from the write race, got %+v", resp)
	}
}

func TestVerifyNotifierFailureDoesNotChangeResult(t *testing.T) {
	codes := newFakeCodeStore(visitorCode(1, "123456"))
	svc := newVerification(codes, newFakeEntryLogStore(), &fakeNotifier{err: errors.New("broker down")})

	resp := verify(t, svc, "123456")
	if !resp.Granted {
		t.Fatalf("expected grant with broken notifier, got %+v", resp)
	}
}

func TestGetEntryLogsPaging(t *testing.T) {
	entries := newFakeEntryLogStore()
	exit := time.Now()
	for i := 1; i <= 5; i++ {
		l := &models.EntryLog{ID: int64(i), CommunityID: 1, AccessCodeID: 9, EnteredAt: time.Now()}
		if i%2 == 0 {
			l.ExitedAt = &exit
		}
		entries.logs = append(entries.logs, l)
	}
	svc := newVerification(newFakeCodeStore(), entries, &fakeNotifier{})

	resp, err := svc.GetEntryLogs(context.Background(), 1, &dto.EntryLogFilterRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("get entry logs: %v", err)
	}
	if len(resp.Logs) != 2 || resp.PaginationInfo.TotalItems != 5 {
		t.Fatalf("expected 2 of 5 logs, got %d of %d", len(resp.Logs), resp.PaginationInfo.TotalItems)
	}

	resp, err = svc.GetEntryLogs(context.Background(), 1, &dto.EntryLogFilterRequest{OpenOnly: true, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("get open entry logs: %v", err)
	}
	if len(resp.Logs) != 3 {
		t.Fatalf("expected 3 open sessions, got %d", len(resp.Logs))
	}
}
