package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
)

const matchTableName = "donorbridge.donation_matches"

var matchColumns = utils.Columns(types.Match{})

type MatchRepository struct {
	db DB
}

func NewMatchRepository(db DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Match(ctx context.Context, id string) (*types.Match, error) {
	query, args, err := psql().
		Select(matchColumns...).
		From(matchTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate match query: %w", err)
	}

	var match types.Match
	err = pgxscan.Get(ctx, conn(ctx, r.db), &match, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}

	return &match, nil
}

// MatchesByDonation returns every match for a donation in allocation
// precedence order. Callers needing a guaranteed order still pass the result
// through matching.Rank, which also breaks exact ties.
func (r *MatchRepository) MatchesByDonation(ctx context.Context, donationID string) ([]*types.Match, error) {
	query, args, err := psql().
		Select(matchColumns...).
		From(matchTableName).
		Where(sq.Eq{"donation_id": donationID}).
		OrderBy("priority_rank ASC NULLS LAST", "match_score DESC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate matches-by-donation query: %w", err)
	}

	var matches = make([]*types.Match, 0)
	err = pgxscan.Select(ctx, conn(ctx, r.db), &matches, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches by donation: %w", err)
	}

	return matches, nil
}

func (r *MatchRepository) CreateMatch(ctx context.Context, match *types.Match) error {
	now := time.Now()
	match.ID = utils.NanoID()
	match.CreatedAt = now
	match.UpdatedAt = now

	query, args, err := psql().
		Insert(matchTableName).
		SetMap(utils.ColumnMap(match)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert match query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return types.ErrMatchExists
	}
	return utils.ErrorWrapOrNil(err, "failed to create match")
}

func (r *MatchRepository) TransitionMatch(ctx context.Context, id string, from types.MatchStatus, update *types.MatchUpdate) error {
	fields := utils.UpdateMap(update)
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(matchTableName).
		SetMap(fields).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate match transition query: %w", err)
	}

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStaleTransition
	}

	return nil
}
