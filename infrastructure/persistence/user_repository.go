package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repurposer/domain/model"
)

// UserRepository reads the billing view of users. The usage counter resets
// lazily when a new calendar month starts.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *UserRepository) GetByID(ctx context.Context, tenant model.Tenant, id string) (*model.User, error) {
	q := fmt.Sprintf(`SELECT id, email, tier, repurposes_this_month, usage_reset_at, created_at FROM %s WHERE id=$1`, qualify(tenant, "users"))
	u := &model.User{}
	var tier string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Email, &tier, &u.RepurposesThisMonth, &u.UsageResetAt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Tier = model.Tier(tier)
	if startOfMonth(r.now()).After(u.UsageResetAt) {
		u.RepurposesThisMonth = 0
	}
	return u, nil
}

// IncrementUsage bumps the monthly counter, restarting it on a new month.
func (r *UserRepository) IncrementUsage(ctx context.Context, tenant model.Tenant, id string) error {
	month := startOfMonth(r.now())
	q := fmt.Sprintf(`UPDATE %s SET repurposes_this_month = CASE WHEN usage_reset_at < $1 THEN 1 ELSE repurposes_this_month + 1 END, usage_reset_at = CASE WHEN usage_reset_at < $1 THEN $1 ELSE usage_reset_at END WHERE id=$2`, qualify(tenant, "users"))
	_, err := r.db.ExecContext(ctx, q, month, id)
	return err
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// TenantRepository lists tenant schemas from the shared public catalogue.
type TenantRepository struct{ db *sql.DB }

func NewTenantRepository(db *sql.DB) *TenantRepository { return &TenantRepository{db: db} }

func (r *TenantRepository) ListActive(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT schema_name, name FROM public.tenants WHERE is_active=TRUE ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
