package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qrlink/internal/domain"
)

const accountColumns = `
	u.id::text, u.username, u.password_hash, COALESCE(u.email, ''), u.is_active, u.created_at,
	p.uuid::text, p.user_id::text, p.name, p.bio, p.avatar,
	p.instagram, p.twitter, p.tiktok, p.youtube, p.linkedin, p.facebook,
	p.website, p.is_published, p.qr_asset, p.created_at, p.updated_at`

const accountFrom = `
	FROM users u
	JOIN qr_profiles p ON p.user_id = u.id`

const uniqueViolation = "23505"

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapPgError("begin create", err)
	}
	defer tx.Rollback(ctx)

	const insertUser = `
		INSERT INTO users (id, username, password_hash, email, is_active, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`
	u := account.User
	if _, err := tx.Exec(ctx, insertUser, u.ID, u.Username, u.PasswordHash, u.Email, u.IsActive, u.CreatedAt); err != nil {
		return mapPgError("insert user", err)
	}

	const insertProfile = `
		INSERT INTO qr_profiles (
			uuid, user_id, name, bio, avatar,
			instagram, twitter, tiktok, youtube, linkedin, facebook,
			website, is_published, qr_asset, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	p := account.Profile
	asset, err := encodeAsset(p.QRAsset)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insertProfile,
		p.UUID, p.UserID, p.Name, p.Bio, p.Avatar,
		p.Instagram, p.Twitter, p.TikTok, p.YouTube, p.LinkedIn, p.Facebook,
		p.Website, p.IsPublished, asset, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return mapPgError("insert profile", err)
	}

	return mapPgError("commit create", tx.Commit(ctx))
}

func (r *PgAccountRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id::text, username, password_hash, COALESCE(email, ''), is_active, created_at
		FROM users
		WHERE id::text = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, id), "get user")
}

func (r *PgAccountRepository) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `
		SELECT id::text, username, password_hash, COALESCE(email, ''), is_active, created_at
		FROM users
		WHERE username = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, username), "get user by username")
}

func (r *PgAccountRepository) scanUser(row pgx.Row, op string) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return domain.User{}, mapPgError(op, err)
	}
	return u, nil
}

func (r *PgAccountRepository) GetProfile(ctx context.Context, uuid string) (domain.Profile, error) {
	account, err := r.GetAccount(ctx, uuid)
	if err != nil {
		return domain.Profile{}, err
	}
	return account.Profile, nil
}

func (r *PgAccountRepository) GetAccount(ctx context.Context, uuid string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + accountFrom + ` WHERE p.uuid::text = $1`
	return queryAccount(ctx, r.pool, "get account", query, uuid)
}

func (r *PgAccountRepository) GetAccountByUserID(ctx context.Context, userID string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + accountFrom + ` WHERE u.id::text = $1`
	return queryAccount(ctx, r.pool, "get account by user", query, userID)
}

func (r *PgAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + accountFrom + ` ORDER BY u.created_at ASC, u.id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, mapPgError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, mapPgError("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError("list accounts", err)
	}
	return accounts, nil
}

// UpdateProfile bloquea la fila del perfil y escribe el patch completo en una
// sola sentencia, de modo que dos patches concurrentes nunca se mezclan.
func (r *PgAccountRepository) UpdateProfile(ctx context.Context, uuid string, patch domain.ProfilePatch) (domain.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Profile{}, mapPgError("begin update", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + accountColumns + accountFrom + ` WHERE p.uuid::text = $1 FOR UPDATE OF p`
	account, err := queryAccount(ctx, tx, "lock profile", query, uuid)
	if err != nil {
		return domain.Profile{}, err
	}

	profile := account.Profile
	if err := patch.CheckPrecondition(profile); err != nil {
		return domain.Profile{}, err
	}
	patch.Apply(&profile)
	profile.UpdatedAt = time.Now().UTC()

	asset, err := encodeAsset(profile.QRAsset)
	if err != nil {
		return domain.Profile{}, err
	}

	const update = `
		UPDATE qr_profiles SET
			name = $2, bio = $3, avatar = $4,
			instagram = $5, twitter = $6, tiktok = $7, youtube = $8, linkedin = $9, facebook = $10,
			website = $11, is_published = $12, qr_asset = $13, updated_at = $14
		WHERE uuid::text = $1
	`
	if _, err := tx.Exec(ctx, update,
		profile.UUID, profile.Name, profile.Bio, profile.Avatar,
		profile.Instagram, profile.Twitter, profile.TikTok, profile.YouTube, profile.LinkedIn, profile.Facebook,
		profile.Website, profile.IsPublished, asset, profile.UpdatedAt,
	); err != nil {
		return domain.Profile{}, mapPgError("update profile", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Profile{}, mapPgError("commit update", err)
	}
	return profile, nil
}

func (r *PgAccountRepository) SetActive(ctx context.Context, userID string, active bool) (domain.Account, error) {
	query := `
		WITH u AS (
			UPDATE users SET is_active = $2
			WHERE id::text = $1
			RETURNING *
		)
		SELECT ` + accountColumns + `
		FROM u
		JOIN qr_profiles p ON p.user_id = u.id`
	return queryAccount(ctx, r.pool, "set active", query, userID, active)
}

// Delete elimina el usuario; el perfil cae por ON DELETE CASCADE.
func (r *PgAccountRepository) Delete(ctx context.Context, userID string) (domain.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Account{}, mapPgError("begin delete", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + accountColumns + accountFrom + ` WHERE u.id::text = $1 FOR UPDATE`
	account, err := queryAccount(ctx, tx, "lock account", query, userID)
	if err != nil {
		return domain.Account{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id::text = $1`, userID); err != nil {
		return domain.Account{}, mapPgError("delete user", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, mapPgError("commit delete", err)
	}
	return account, nil
}

func (r *PgAccountRepository) Ping(ctx context.Context) error {
	return mapPgError("ping", r.pool.Ping(ctx))
}

func queryAccount(ctx context.Context, q rowQuerier, op, query string, args ...any) (domain.Account, error) {
	account, err := scanAccount(q.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Account{}, mapPgError(op, err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		a     domain.Account
		asset []byte
	)
	u := &a.User
	p := &a.Profile
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.IsActive, &u.CreatedAt,
		&p.UUID, &p.UserID, &p.Name, &p.Bio, &p.Avatar,
		&p.Instagram, &p.Twitter, &p.TikTok, &p.YouTube, &p.LinkedIn, &p.Facebook,
		&p.Website, &p.IsPublished, &asset, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	if len(asset) > 0 {
		var qr domain.QRAsset
		if err := json.Unmarshal(asset, &qr); err != nil {
			return domain.Account{}, fmt.Errorf("decode qr asset: %w", err)
		}
		p.QRAsset = &qr
	}
	return a, nil
}

func encodeAsset(asset *domain.QRAsset) (any, error) {
	if asset == nil {
		return nil, nil
	}
	b, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("encode qr asset: %w", err)
	}
	return string(b), nil
}

func mapPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
}
