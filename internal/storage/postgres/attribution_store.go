package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// AttributionStore implements storage.AttributionStore using PostgreSQL.
type AttributionStore struct {
	pool *Pool
}

// NewAttributionStore creates a new AttributionStore.
func NewAttributionStore(pool *Pool) *AttributionStore {
	return &AttributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AttributionStore = (*AttributionStore)(nil)

const attributionColumns = `
	user_id, product_id, credited_date,
	campaign_id, adset_id, ad_id,
	price_bucket, store, economic_tier, country, region,
	estimated_value, valid,
	trial_conversion_rate, trial_refund_rate, purchase_refund_rate, rate_accuracy
`

// InsertBulk adds attribution rows in one transaction. Returns
// ErrDuplicateKey if a (user_id, product_id) pair already exists.
func (s *AttributionStore) InsertBulk(ctx context.Context, attrs []*domain.Attribution) error {
	if len(attrs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO user_product_attributions (` + attributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	for _, a := range attrs {
		_, err := tx.Exec(ctx, query,
			a.UserID, a.ProductID, a.CreditedDate,
			a.CampaignID, a.AdsetID, a.AdID,
			a.PriceBucket, a.Store, a.EconomicTier, a.Country, a.Region,
			a.EstimatedValue, a.Valid,
			a.TrialConversionRate, a.TrialRefundRate, a.PurchaseRefundRate, string(a.RateAccuracy),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert attribution: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListValidCreditedBetween retrieves valid rows credited within
// [from, to] inclusive.
func (s *AttributionStore) ListValidCreditedBetween(ctx context.Context, from, to time.Time) ([]*domain.Attribution, error) {
	query := `
		SELECT ` + attributionColumns + `
		FROM user_product_attributions
		WHERE valid AND credited_date >= $1 AND credited_date <= $2
		ORDER BY user_id ASC, product_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("list attributions by credited date: %w", err)
	}
	defer rows.Close()

	return scanAttributions(rows)
}

// ListValidForEntityType retrieves valid in-range rows with a non-empty
// entity id for the given type. Eligibility lives in the query, not in
// post-hoc filtering.
func (s *AttributionStore) ListValidForEntityType(ctx context.Context, entityType domain.EntityType, from, to time.Time) ([]*domain.Attribution, error) {
	column, err := entityColumn(entityType)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + attributionColumns + `
		FROM user_product_attributions
		WHERE valid AND ` + column + ` <> ''
		  AND credited_date >= $1 AND credited_date <= $2
		ORDER BY user_id ASC, product_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("list attributions for entity type: %w", err)
	}
	defer rows.Close()

	return scanAttributions(rows)
}

// ListValidWithoutRates retrieves valid rows missing any rate estimate.
func (s *AttributionStore) ListValidWithoutRates(ctx context.Context) ([]*domain.Attribution, error) {
	query := `
		SELECT ` + attributionColumns + `
		FROM user_product_attributions
		WHERE valid AND (
			trial_conversion_rate IS NULL
			OR trial_refund_rate IS NULL
			OR purchase_refund_rate IS NULL
		)
		ORDER BY user_id ASC, product_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attributions without rates: %w", err)
	}
	defer rows.Close()

	return scanAttributions(rows)
}

// UpdateRates writes back rate estimates in one transaction, matched by
// (user_id, product_id).
func (s *AttributionStore) UpdateRates(ctx context.Context, attrs []*domain.Attribution) error {
	if len(attrs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE user_product_attributions
		SET trial_conversion_rate = $3,
		    trial_refund_rate = $4,
		    purchase_refund_rate = $5,
		    rate_accuracy = $6
		WHERE user_id = $1 AND product_id = $2
	`

	for _, a := range attrs {
		tag, err := tx.Exec(ctx, query,
			a.UserID, a.ProductID,
			a.TrialConversionRate, a.TrialRefundRate, a.PurchaseRefundRate,
			string(a.RateAccuracy),
		)
		if err != nil {
			return fmt.Errorf("update rates: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// entityColumn maps an entity type to its attribution column. The set
// is closed; identifiers never come from input.
func entityColumn(entityType domain.EntityType) (string, error) {
	switch entityType {
	case domain.EntityCampaign:
		return "campaign_id", nil
	case domain.EntityAdset:
		return "adset_id", nil
	case domain.EntityAd:
		return "ad_id", nil
	default:
		return "", fmt.Errorf("%w: unknown entity type %q", storage.ErrInvalidInput, entityType)
	}
}

// scanAttributions scans rows into a slice of Attribution.
func scanAttributions(rows pgx.Rows) ([]*domain.Attribution, error) {
	var attrs []*domain.Attribution

	for rows.Next() {
		var a domain.Attribution
		var accuracy string

		err := rows.Scan(
			&a.UserID, &a.ProductID, &a.CreditedDate,
			&a.CampaignID, &a.AdsetID, &a.AdID,
			&a.PriceBucket, &a.Store, &a.EconomicTier, &a.Country, &a.Region,
			&a.EstimatedValue, &a.Valid,
			&a.TrialConversionRate, &a.TrialRefundRate, &a.PurchaseRefundRate, &accuracy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attribution row: %w", err)
		}
		a.CreditedDate = domain.DayOf(a.CreditedDate)
		a.RateAccuracy = domain.AccuracyLabel(accuracy)

		attrs = append(attrs, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribution rows: %w", err)
	}

	return attrs, nil
}
