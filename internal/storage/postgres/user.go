package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/authenticator/internal/models"
	"github.com/pribylovaa/authenticator/internal/storage"
)

const userColumns = `
	u.id, u.email, u.password, u.name, u.thumbnail,
	u.is_active, u.is_staff, u.is_superuser, u.date_joined,
	p.id, p.user_id
`

// SaveUser создаёт пользователя и его профиль в одной транзакции.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	if user.Profile.ID == uuid.Nil {
		user.Profile.ID = uuid.New()
	}
	user.Profile.UserID = user.ID

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users(id, email, password, name, thumbnail, is_active, is_staff, is_superuser, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Thumbnail,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.DateJoined,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_profile(id, user_id) VALUES ($1, $2)`,
		user.Profile.ID, user.ID,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит пользователя по email (CITEXT — без учёта регистра).
func (s *Storage) UserByEmail(ctx context.Context, email string, active bool) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	user, err := scanUser(s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN user_profile p ON p.user_id = u.id
		WHERE u.email = $1 AND u.is_active = $2
	`, email, active))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	user, err := scanUser(s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN user_profile p ON p.user_id = u.id
		WHERE u.id = $1 AND u.is_active = $2
	`, id, active))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ActivateUser помечает пользователя активным. Повторная активация не ошибка.
func (s *Storage) ActivateUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.ActivateUser"

	tag, err := s.db.Exec(ctx, `UPDATE users SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdatePassword меняет хэш пароля активного пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const op = "storage.postgres.UpdatePassword"

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password = $2 WHERE id = $1 AND is_active = TRUE`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateUser частично обновляет активного пользователя (COALESCE: nil — без изменений).
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	const op = "storage.postgres.UpdateUser"

	user, err := scanUser(s.db.QueryRow(ctx, `
		WITH u AS (
			UPDATE users
			SET name = COALESCE($2, name),
			    thumbnail = COALESCE($3, thumbnail)
			WHERE id = $1 AND is_active = TRUE
			RETURNING *
		)
		SELECT `+userColumns+`
		FROM u
		JOIN user_profile p ON p.user_id = u.id
	`, id, upd.Name, upd.Thumbnail))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Thumbnail,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.DateJoined,
		&u.Profile.ID,
		&u.Profile.UserID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return &u, nil
}
