package database

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"timesheet/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the configured database, registers the audit callbacks and
// migrates the schema.
func Init(driver, dsn, logLevel string) (*gorm.DB, error) {
	db, err := Open(driver, dsn, logLevel)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Open(driver, dsn, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(parseLogLevel(logLevel)),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if dialector.Name() == "sqlite" {
		// in-memory databases exist per connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := RegisterAuditCallbacks(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CostCenter{},
		&models.Project{},
		&models.ProjectAssignment{},
		&models.DailyEntry{},
		&models.WeeklySummary{},
		&models.ServiceAccount{},
	)
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// RegisterAuditCallbacks stamps CreatedBy/UpdatedBy from the actor carried
// by the statement context.
func RegisterAuditCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("audit:create", stampCreate); err != nil {
		return err
	}
	return db.Callback().Update().Before("gorm:update").Register("audit:update", stampUpdate)
}

func stampCreate(db *gorm.DB) {
	if db.Statement.Schema == nil {
		return
	}
	ctx := db.Statement.Context
	actor := models.ActorFromContext(ctx)
	for _, name := range []string{"CreatedBy", "UpdatedBy"} {
		field := db.Statement.Schema.LookUpField(name)
		if field == nil {
			continue
		}
		rv := db.Statement.ReflectValue
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				if err := field.Set(ctx, reflect.Indirect(rv.Index(i)), actor); err != nil {
					db.AddError(err)
				}
			}
		case reflect.Struct:
			if err := field.Set(ctx, rv, actor); err != nil {
				db.AddError(err)
			}
		}
	}
}

func stampUpdate(db *gorm.DB) {
	if db.Statement.Schema == nil || db.Statement.Schema.LookUpField("UpdatedBy") == nil {
		return
	}
	db.Statement.SetColumn("UpdatedBy", models.ActorFromContext(db.Statement.Context), true)
}

// SeedServiceAccount creates the bootstrap machine client when it is not
// present yet. An empty clientID disables seeding.
func SeedServiceAccount(ctx context.Context, db *gorm.DB, log *zap.Logger, clientID, secret, employeeCode string, roles []models.Role) error {
	if clientID == "" {
		return nil
	}
	if secret == "" {
		return fmt.Errorf("service account %s has no secret", clientID)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.ServiceAccount{}).Where("client_id = ?", clientID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	account := models.ServiceAccount{
		ClientID:     clientID,
		SecretHash:   string(hash),
		EmployeeCode: employeeCode,
		Roles:        models.JoinRoles(roles),
		Active:       true,
	}
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return err
	}

	log.Info("bootstrap service account created", zap.String("client_id", clientID))
	return nil
}
