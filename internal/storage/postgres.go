package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/vibes-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, timezone,
	state, context, google_refresh_token, is_onboarding_completed,
	last_morning_checkup_at, last_evening_checkup_at, created_at, updated_at`

func (s *PostgresStorage) scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		user       models.User
		state      string
		rawContext string
	)
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.LanguageCode,
		&user.Timezone,
		&state,
		&rawContext,
		&user.GoogleRefreshToken,
		&user.IsOnboardingCompleted,
		&user.LastMorningCheckupAt,
		&user.LastEveningCheckupAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.State = models.ConversationState(state)
	user.Context, err = models.UnmarshalContext(rawContext)
	if err != nil {
		// A corrupt context blob must not lock the user out of the bot.
		s.logger.Warn("Dropping unreadable dialog context",
			zap.Error(err),
			zap.Int64("user_id", user.ID))
		user.Context = nil
	}
	return &user, nil
}

func (s *PostgresStorage) GetOrCreateUser(ctx context.Context, u NewUser) (*models.User, error) {
	user, err := s.GetUserByTelegramID(ctx, u.TelegramID)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("error querying user: %v", err)
	}

	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, language_code, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query,
		u.TelegramID, u.Username, u.FirstName, u.LastName, u.LanguageCode, string(models.StateNone))

	created, err := s.scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	s.logger.Info("Created new user",
		zap.Int64("telegram_id", u.TelegramID),
		zap.String("username", u.Username))
	return created, nil
}

func (s *PostgresStorage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, telegramID))
}

func (s *PostgresStorage) UpdateUser(ctx context.Context, user *models.User) error {
	rawContext, err := models.MarshalContext(user.Context)
	if err != nil {
		return fmt.Errorf("error serializing dialog context: %v", err)
	}

	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, language_code = $4,
			timezone = $5, state = $6, context = $7, google_refresh_token = $8,
			is_onboarding_completed = $9, last_morning_checkup_at = $10,
			last_evening_checkup_at = $11, updated_at = NOW()
		WHERE id = $12`

	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.FirstName, user.LastName, user.LanguageCode,
		user.Timezone, string(user.State), rawContext, user.GoogleRefreshToken,
		user.IsOnboardingCompleted, user.LastMorningCheckupAt,
		user.LastEveningCheckupAt, user.ID)
	if err != nil {
		return fmt.Errorf("error updating user: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

func (s *PostgresStorage) AllUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return s.queryUsers(ctx, query)
}

func (s *PostgresStorage) ActiveUsers(ctx context.Context, since time.Time) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE is_onboarding_completed AND updated_at >= $1
		ORDER BY id`
	return s.queryUsers(ctx, query, since)
}

func (s *PostgresStorage) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %v", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %v", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) CreateDailyPlan(ctx context.Context, plan *models.DailyPlan) error {
	query := `
		INSERT INTO daily_plans (user_id, plan_date, plan_text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, plan.UserID, plan.PlanDate, plan.PlanText).
		Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating daily plan: %v", err)
	}
	return nil
}

func (s *PostgresStorage) RecentDailyPlans(ctx context.Context, userID int64, limit int) ([]models.DailyPlan, error) {
	query := `
		SELECT id, user_id, plan_date, plan_text, created_at
		FROM daily_plans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying daily plans: %v", err)
	}
	defer rows.Close()

	var plans []models.DailyPlan
	for rows.Next() {
		var plan models.DailyPlan
		if err := rows.Scan(&plan.ID, &plan.UserID, &plan.PlanDate, &plan.PlanText, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning daily plan: %v", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (s *PostgresStorage) CreateEventRating(ctx context.Context, rating *models.EventRating) error {
	// ON CONFLICT keeps the first rating for an event; pressing an old button
	// twice must not produce a second row.
	query := `
		INSERT INTO event_ratings (user_id, google_event_id, event_title, vibe, rated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, google_event_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		rating.UserID, rating.GoogleEventID, rating.EventTitle, string(rating.Vibe), rating.RatedAt)
	if err != nil {
		return fmt.Errorf("error creating event rating: %v", err)
	}
	return nil
}

func (s *PostgresStorage) RecentEventRatings(ctx context.Context, userID int64, limit int) ([]models.EventRating, error) {
	query := `
		SELECT id, user_id, google_event_id, event_title, vibe, rated_at
		FROM event_ratings
		WHERE user_id = $1
		ORDER BY rated_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying event ratings: %v", err)
	}
	defer rows.Close()

	var ratings []models.EventRating
	for rows.Next() {
		var (
			rating models.EventRating
			vibe   string
		)
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.GoogleEventID, &rating.EventTitle, &vibe, &rating.RatedAt); err != nil {
			return nil, fmt.Errorf("error scanning event rating: %v", err)
		}
		rating.Vibe = models.Vibe(vibe)
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
