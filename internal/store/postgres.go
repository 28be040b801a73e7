package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/karierin/career-assistant/internal/model"
)

// PostgresConfig holds connection settings for the postgres store.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type sessionRow struct {
	ID        string    `gorm:"primaryKey;size:36;column:id"`
	UserID    string    `gorm:"index:idx_chat_sessions_user_updated,priority:1;size:64;not null;column:user_id"`
	Title     string    `gorm:"size:255;not null;column:title"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"index:idx_chat_sessions_user_updated,priority:2,sort:desc;autoUpdateTime:false;not null;column:updated_at"`
}

func (sessionRow) TableName() string {
	return "chat_sessions"
}

func (r *sessionRow) toModel() model.ChatSession {
	return model.ChatSession{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type messageRow struct {
	ID        string      `gorm:"primaryKey;size:36;column:id"`
	SessionID string      `gorm:"index:idx_messages_session_created,priority:1;size:36;not null;column:session_id"`
	Session   *sessionRow `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE"`
	UserID    string      `gorm:"size:64;not null;column:user_id"`
	Role      string      `gorm:"size:20;not null;check:role IN ('user','assistant');column:role"`
	Content   string      `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time   `gorm:"index:idx_messages_session_created,priority:2;not null;column:created_at"`
}

func (messageRow) TableName() string {
	return "messages"
}

func (r *messageRow) toModel() model.Message {
	return model.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		UserID:    r.UserID,
		Role:      model.Role(r.Role),
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}

// Postgres is a Store backed by PostgreSQL through gorm.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres opens the database, configures the pool and migrates the schema.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&sessionRow{}, &messageRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ListSessions returns the user's sessions ordered by updated_at descending.
func (p *Postgres) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	var rows []sessionRow
	if err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, wrap("list sessions", err)
	}

	sessions := make([]model.ChatSession, len(rows))
	for i := range rows {
		sessions[i] = rows[i].toModel()
	}
	return sessions, nil
}

// CreateSession inserts a session row.
func (p *Postgres) CreateSession(ctx context.Context, session *model.ChatSession) (*model.ChatSession, error) {
	row := sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, wrap("create session", err)
	}

	out := row.toModel()
	return &out, nil
}

// GetSession returns the session by ID.
func (p *Postgres) GetSession(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	row, err := p.getSession(p.db.WithContext(ctx), sessionID)
	if err != nil {
		return nil, wrap("get session", err)
	}

	out := row.toModel()
	return &out, nil
}

func (p *Postgres) getSession(db *gorm.DB, sessionID string) (*sessionRow, error) {
	var row sessionRow
	if err := db.Where("id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// RenameSession sets the title and refreshes updated_at.
func (p *Postgres) RenameSession(ctx context.Context, sessionID, title string, at time.Time) (*model.ChatSession, error) {
	var row *sessionRow
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sessionRow{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{
				"title":      title,
				"updated_at": gorm.Expr("GREATEST(updated_at, ?)", at),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var err error
		row, err = p.getSession(tx, sessionID)
		return err
	})
	if err != nil {
		return nil, wrap("rename session", err)
	}

	out := row.toModel()
	return &out, nil
}

// DeleteSession removes the session; the foreign key cascades to messages.
func (p *Postgres) DeleteSession(ctx context.Context, sessionID string) error {
	res := p.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&sessionRow{})
	if res.Error != nil {
		return wrap("delete session", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("delete session", ErrNotFound)
	}
	return nil
}

// ListMessages returns the session's messages ordered by creation time.
func (p *Postgres) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var rows []messageRow
	if err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap("list messages", err)
	}

	msgs := make([]model.Message, len(rows))
	for i := range rows {
		msgs[i] = rows[i].toModel()
	}
	return msgs, nil
}

// CountMessages returns the number of messages in the session.
func (p *Postgres) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int64
	if err := p.db.WithContext(ctx).
		Model(&messageRow{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error; err != nil {
		return 0, wrap("count messages", err)
	}
	return int(n), nil
}

// AppendMessage inserts msg and bumps the session's updated_at in one
// transaction. A created_at earlier than the session's last message is
// raised to it so the conversation keeps its append order.
func (p *Postgres) AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	row := messageRow{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		UserID:    msg.UserID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := p.getSession(tx.Clauses(clause.Locking{Strength: "UPDATE"}), msg.SessionID); err != nil {
			return err
		}

		var last messageRow
		if err := tx.Where("session_id = ?", msg.SessionID).
			Order("created_at DESC").
			Limit(1).
			Find(&last).Error; err != nil {
			return err
		}
		if last.ID != "" && row.CreatedAt.Before(last.CreatedAt) {
			row.CreatedAt = last.CreatedAt
		}

		if err := tx.Omit("Session").Create(&row).Error; err != nil {
			return err
		}

		res := tx.Model(&sessionRow{}).
			Where("id = ?", msg.SessionID).
			Update("updated_at", gorm.Expr("GREATEST(updated_at, ?)", row.CreatedAt))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrap("append message", err)
	}

	out := row.toModel()
	return &out, nil
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return wrap("ping", err)
	}
	return wrap("ping", sqlDB.PingContext(ctx))
}

// Close closes the database connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database connection: %w", err)
	}
	return sqlDB.Close()
}
