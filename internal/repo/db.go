package repo

import (
	"PassKeeper/internal/model"
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// defaultSQLitePath — файл БД для локального запуска без DATABASE_URI.
const defaultSQLitePath = "passkeeper.db"

// DefaultQuestions — контрольные вопросы, которые создаются в пустой БД.
var DefaultQuestions = []string{
	"What was the name of your first pet?",
	"In what city were you born?",
	"What is your mother's maiden name?",
	"What was the model of your first car?",
	"What was the name of your elementary school?",
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// InitDB открывает БД (PostgreSQL по DSN, иначе SQLite), выполняет миграции и наполняет справочники.
func InitDB(dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	if isPostgresDSN(dsn) {
		dial = postgres.Open(dsn)
	} else {
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создаёт таблицы всех моделей и контрольные вопросы по умолчанию.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.SecurityQuestion{}, &model.User{}, &model.Credential{}, &model.ShareGrant{},
		&model.Group{}, &model.GroupMember{}, &model.Message{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return NewQuestionRepository(db).Seed(context.Background(), DefaultQuestions)
}
