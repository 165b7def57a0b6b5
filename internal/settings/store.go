package settings

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/internal/security"
	"github.com/professor93/tgconfig/pkg/constants"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrNotFound is returned when a key has no stored override
	ErrNotFound = errors.New("setting not found")
	// ErrUnknownKey is returned for keys that are not "<app>.<field>" of a record
	ErrUnknownKey = errors.New("unknown setting key")
)

// Store keeps per-host overrides of front-end config values in SQLite.
// Values are encrypted at rest with the store key.
type Store struct {
	conn   *sql.DB
	cipher *security.ValueCipher
	dbPath string
	logger *zap.Logger
	mu     sync.RWMutex
}

// Config holds store configuration
type Config struct {
	StoreKey []byte // 32-byte key for value encryption
	DataDir  string // Directory for the database file
	Logger   *zap.Logger
}

// Open opens (or creates) the settings database and applies migrations
func Open(cfg *Config) (*Store, error) {
	cipher, err := security.NewValueCipher(cfg.StoreKey)
	if err != nil {
		return nil, errors.Wrap(err, "create value cipher")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	dbPath := filepath.Join(dataDir, constants.DatabaseFileName)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// A single writer keeps SQLite free of SQLITE_BUSY under WAL
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "set %s", pragma)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Debug("Settings store opened", zap.String("path", dbPath))

	return &Store{
		conn:   conn,
		cipher: cipher,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// DefaultDataDir returns PROGRAMDATA\TGConfig on Windows, /var/lib/tgconfig
// elsewhere, or ./TGConfig when neither location applies
func DefaultDataDir() string {
	if dir := os.Getenv("PROGRAMDATA"); dir != "" {
		return filepath.Join(dir, constants.DataDirName)
	}
	if st, err := os.Stat("/var/lib"); err == nil && st.IsDir() {
		return filepath.Join("/var/lib", strings.ToLower(constants.DataDirName))
	}
	return constants.DataDirName
}

func migrate(conn *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return errors.Wrap(err, "create migration provider")
	}

	if _, err := provider.Up(context.Background()); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *Store) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return errors.New("database connection is nil")
	}

	return s.conn.Ping()
}

// Get returns the override stored for key
func (s *Store) Get(key string) (string, error) {
	if !config.IsKnownKey(key) {
		return "", errors.Wrap(ErrUnknownKey, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	err := s.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", errors.Wrap(ErrNotFound, key)
	}
	if err != nil {
		return "", errors.Wrap(err, "query setting")
	}

	plain, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return "", errors.Wrapf(err, "decrypt setting %s", key)
	}

	return string(plain), nil
}

// Set stores an override. key must name a record field ("kds.local_port").
func (s *Store) Set(key, value string) error {
	if !config.IsKnownKey(key) {
		return errors.Wrap(ErrUnknownKey, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := s.cipher.Encrypt([]byte(value))
	if err != nil {
		return errors.Wrap(err, "encrypt setting value")
	}

	query := `
		INSERT INTO settings (key, value, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.conn.Exec(query, key, encrypted); err != nil {
		return errors.Wrap(err, "set setting")
	}

	return nil
}

// Delete removes an override
func (s *Store) Delete(key string) error {
	if !config.IsKnownKey(key) {
		return errors.Wrap(ErrUnknownKey, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.conn.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return errors.Wrap(err, "delete setting")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected")
	}
	if rowsAffected == 0 {
		return errors.Wrap(ErrNotFound, key)
	}

	return nil
}

// Exists reports whether key has a stored override
func (s *Store) Exists(key string) (bool, error) {
	if !config.IsKnownKey(key) {
		return false, errors.Wrap(ErrUnknownKey, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.conn.QueryRow("SELECT EXISTS(SELECT 1 FROM settings WHERE key = ?)", key).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check setting existence")
	}

	return exists, nil
}

// All returns every override. Rows that fail to decrypt, or whose key no
// longer names a record field, are logged and skipped.
func (s *Store) All() (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, errors.Wrap(err, "query settings")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, encrypted string
		if err := rows.Scan(&key, &encrypted); err != nil {
			return nil, errors.Wrap(err, "scan setting row")
		}

		if !config.IsKnownKey(key) {
			s.logger.Warn("Skipping unknown setting key", zap.String("key", key))
			continue
		}

		plain, err := s.cipher.Decrypt(encrypted)
		if err != nil {
			s.logger.Warn("Skipping undecryptable setting", zap.String("key", key), zap.Error(err))
			continue
		}

		out[key] = string(plain)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate settings")
	}

	return out, nil
}

// Keys returns the keys with stored overrides, sorted
func (s *Store) Keys() ([]string, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
