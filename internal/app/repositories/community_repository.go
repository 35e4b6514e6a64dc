package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimd/porta/internal/app/models"
	"github.com/selimd/porta/internal/pkg/apperrors"
	"github.com/selimd/porta/internal/pkg/dberrors"
)

// CommunityRepository handles database operations for communities
type CommunityRepository struct {
	db *pgxpool.Pool
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// CreateCommunity creates a new community
func (r *CommunityRepository) CreateCommunity(ctx context.Context, community *models.Community) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO communities (name, address, max_residents_per_household)
		VALUES ($1, $2, $3)
		RETURNING id`,
		community.Name, community.Address, community.MaxResidentsPerHousehold).Scan(&id)

	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, apperrors.ErrCommunityAlreadyExists
		}
		return 0, fmt.Errorf("error creating community: %w", err)
	}

	return id, nil
}

// GetCommunityByID retrieves a community by ID
func (r *CommunityRepository) GetCommunityByID(ctx context.Context, id int64) (*models.Community, error) {
	community := &models.Community{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, address, max_residents_per_household, created_at, updated_at
		FROM communities
		WHERE id = $1`,
		id).Scan(&community.ID, &community.Name, &community.Address,
		&community.MaxResidentsPerHousehold, &community.CreatedAt, &community.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error querying community: %w", err)
	}

	return community, nil
}

// GetAllCommunities retrieves all communities
func (r *CommunityRepository) GetAllCommunities(ctx context.Context) ([]*models.Community, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, address, max_residents_per_household, created_at, updated_at
		FROM communities
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error querying communities: %w", err)
	}
	defer rows.Close()

	var communities []*models.Community
	for rows.Next() {
		community := &models.Community{}
		err := rows.Scan(&community.ID, &community.Name, &community.Address,
			&community.MaxResidentsPerHousehold, &community.CreatedAt, &community.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		communities = append(communities, community)
	}

	return communities, nil
}
