package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimd/porta/internal/app/models"
)

// EntryLogRepository handles database operations for entry logs
type EntryLogRepository struct {
	db *pgxpool.Pool
}

// NewEntryLogRepository creates a new EntryLogRepository
func NewEntryLogRepository(db *pgxpool.Pool) *EntryLogRepository {
	return &EntryLogRepository{db: db}
}

// CloseOpenSession closes the open session for an access code, if one exists,
// and returns the closed row. Returns (nil, nil) when no session is open. The
// conditional UPDATE is the atomicity point of the clock-out toggle: of two
// concurrent scans, exactly one closes the row and the other observes no open
// session.
func (r *EntryLogRepository) CloseOpenSession(ctx context.Context, accessCodeID int64, exitPoint string) (*models.EntryLog, error) {
	entry := &models.EntryLog{}
	err := r.db.QueryRow(ctx, `
		UPDATE entry_logs
		SET exited_at = NOW(), exit_point = $2
		WHERE access_code_id = $1 AND exited_at IS NULL
		RETURNING id, community_id, access_code_id, guard_id, code_type, entered_at, exited_at, entry_point, exit_point`,
		accessCodeID, exitPoint).Scan(
		&entry.ID, &entry.CommunityID, &entry.AccessCodeID, &entry.GuardID, &entry.CodeType,
		&entry.EnteredAt, &entry.ExitedAt, &entry.EntryPoint, &entry.ExitPoint)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error closing open session: %w", err)
	}

	return entry, nil
}

// GetEntryLogsByCommunity retrieves a community's entry logs, newest first,
// with optional filters and pagination. Visitor name is joined in for the
// guard/manager listing.
func (r *EntryLogRepository) GetEntryLogsByCommunity(ctx context.Context, communityID int64, accessCodeID int64, openOnly bool, page, pageSize int) ([]*models.EntryLog, int, error) {
	where := squirrel.And{squirrel.Eq{"l.community_id": communityID}}
	if accessCodeID > 0 {
		where = append(where, squirrel.Eq{"l.access_code_id": accessCodeID})
	}
	if openOnly {
		where = append(where, squirrel.Expr("l.exited_at IS NULL"))
	}

	countQuery := squirrel.Select("COUNT(*)").
		From("entry_logs l").
		Where(where).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting entry logs: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := squirrel.Select(
		"l.id", "l.community_id", "l.access_code_id", "l.guard_id", "l.code_type",
		"l.entered_at", "l.exited_at", "l.entry_point", "l.exit_point",
		"c.visitor_name",
	).
		From("entry_logs l").
		Join("access_codes c ON c.id = l.access_code_id").
		Where(where).
		OrderBy("l.entered_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err = query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var logs []*models.EntryLog
	for rows.Next() {
		entry := &models.EntryLog{AccessCode: &models.AccessCode{}}
		err := rows.Scan(
			&entry.ID, &entry.CommunityID, &entry.AccessCodeID, &entry.GuardID, &entry.CodeType,
			&entry.EnteredAt, &entry.ExitedAt, &entry.EntryPoint, &entry.ExitPoint,
			&entry.AccessCode.VisitorName)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		logs = append(logs, entry)
	}

	return logs, total, nil
}
