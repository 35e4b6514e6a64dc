package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository       *UserRepository
	TokenRepository      *TokenRepository
	CommunityRepository  *CommunityRepository
	MemberRepository     *MemberRepository
	HouseholdRepository  *HouseholdRepository
	AccessCodeRepository *AccessCodeRepository
	EntryLogRepository   *EntryLogRepository
	InvitationRepository *InvitationRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:       NewUserRepository(db),
		TokenRepository:      NewTokenRepository(db),
		CommunityRepository:  NewCommunityRepository(db),
		MemberRepository:     NewMemberRepository(db),
		HouseholdRepository:  NewHouseholdRepository(db),
		AccessCodeRepository: NewAccessCodeRepository(db),
		EntryLogRepository:   NewEntryLogRepository(db),
		InvitationRepository: NewInvitationRepository(db),
	}
}
