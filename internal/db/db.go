// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"hr-evaluator.kz/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var DB *sql.DB

var ErrNotInitialized = errors.New("БД не инициализирована")

func RunMigrations(dbConn *sql.DB, dbName, migrationsPath string) error {
	driverInstance, err := mysql.WithInstance(dbConn, &mysql.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return fmt.Errorf("не удалось создать драйвер миграций mysql: %w", err)
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return fmt.Errorf("не удалось определить путь к миграциям '%s': %w", migrationsPath, err)
	}
	migrationsURL := "file://" + filepath.ToSlash(absPath)

	m, err := migrate.NewWithDatabaseInstance(migrationsURL, "mysql", driverInstance)
	if err != nil {
		slog.Error("Ошибка создания экземпляра migrate", "url", migrationsURL, "dbName", dbName, "error", err)
		return fmt.Errorf("ошибка создания экземпляра migrate (проверьте путь '%s'): %w", migrationsURL, err)
	}

	slog.Info("Применение миграций MySQL...", "path", migrationsURL)
	err = m.Up()

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verr := m.Version()
		if verr != nil {
			slog.Error("Ошибка получения статуса миграции после неудачного Up", "migration_error", err, "status_error", verr)
		} else {
			slog.Error("Ошибка применения миграций. Проверьте логи и файлы миграций.", "current_version", version, "dirty_state", dirty, "error_up", err)
		}
		return fmt.Errorf("ошибка применения миграций MySQL: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("Миграции MySQL: нет изменений.")
	} else {
		slog.Info("Миграции MySQL успешно применены.")
	}
	return nil
}

// BuildDSN собирает DSN для go-sql-driver/mysql. multiStatements нужен для файлов миграций.
func BuildDSN(dbCfg config.DatabaseConfig) (string, error) {
	if dbCfg.DSN != "" {
		dsn := dbCfg.DSN
		for _, param := range []string{"multiStatements=true", "parseTime=true"} {
			if strings.Contains(dsn, param) {
				continue
			}
			if strings.Contains(dsn, "?") {
				dsn += "&" + param
			} else {
				dsn += "?" + param
			}
		}
		return dsn, nil
	}
	if dbCfg.Host != "" && dbCfg.User != "" && dbCfg.DBName != "" {
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&multiStatements=true",
			dbCfg.User,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
		), nil
	}
	return "", fmt.Errorf("недостаточно параметров для подключения к MySQL: DSN или Host+User+DBName должны быть заданы")
}

// databaseName достает имя БД из DSN вида user:pass@tcp(host)/name?params.
func databaseName(dbCfg config.DatabaseConfig, dsn string) string {
	if dbCfg.DBName != "" {
		return dbCfg.DBName
	}
	slash := strings.LastIndex(dsn, "/")
	if slash < 0 {
		return ""
	}
	name := dsn[slash+1:]
	if q := strings.Index(name, "?"); q >= 0 {
		name = name[:q]
	}
	return name
}

func InitDB(appConfig *config.Config) error {
	dbCfg := appConfig.Database

	dsn, err := BuildDSN(dbCfg)
	if err != nil {
		slog.Error("InitDB: Не удалось сформировать DSN", "host", dbCfg.Host, "user", dbCfg.User, "dbname", dbCfg.DBName)
		return err
	}

	safeDSN := dsn
	if dbCfg.Password != "" {
		safeDSN = strings.Replace(dsn, dbCfg.Password, "****", 1)
	}
	if at := strings.Index(safeDSN, "@"); dbCfg.DSN != "" && at >= 0 {
		safeDSN = "****" + safeDSN[at:]
	}
	slog.Info("Подключение к MySQL", "dsn_for_connection", safeDSN)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("ошибка открытия соединения с MySQL: %w", err)
	}

	conn.SetConnMaxLifetime(time.Minute * 3)
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)

	if err = conn.Ping(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ошибка подключения к MySQL (ping failed): %w. DSN: %s", err, safeDSN)
	}
	slog.Info("Успешное подключение к MySQL.")

	if err = RunMigrations(conn, databaseName(dbCfg, dsn), dbCfg.MigrationsPath); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ошибка выполнения миграций MySQL: %w", err)
	}
	DB = conn

	if err := EnsureSessionsTable(); err != nil {
		slog.Error("Не удалось создать таблицу 'sessions' для MySQL.", "error", err)
	}

	SeedInitialSettings()

	slog.Info("База данных MySQL успешно инициализирована (включая миграции и начальные данные).")
	return nil
}

// EnsureSessionsTable создает таблицу для scs/mysqlstore.
func EnsureSessionsTable() error {
	if DB == nil {
		return ErrNotInitialized
	}
	createTableSQL := `CREATE TABLE IF NOT EXISTS sessions (
		token CHAR(43) PRIMARY KEY,
		data BLOB NOT NULL,
		expiry TIMESTAMP(6) NOT NULL
	);`
	if _, err := DB.Exec(createTableSQL); err != nil {
		return fmt.Errorf("не удалось создать таблицу sessions: %w", err)
	}
	slog.Info("Таблица 'sessions' проверена/создана.")

	// MySQL не поддерживает CREATE INDEX IF NOT EXISTS, поэтому ошибку дубликата игнорируем.
	if _, err := DB.Exec(`CREATE INDEX sessions_expiry_idx ON sessions (expiry);`); err != nil {
		slog.Debug("Индекс 'sessions_expiry_idx' не создан (вероятно, уже существует).", "error", err)
	}
	return nil
}

// Ping используется в /healthz.
func Ping(ctx context.Context) error {
	if DB == nil {
		return ErrNotInitialized
	}
	return DB.PingContext(ctx)
}
