package metadatalog

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/hadoop835/iggy/internal/logger"
)

var _ MetadataLog = (*PostgresLog)(nil)

// entryRow is the GORM model backing the append-only metadata_log table.
// Rows are never updated or deleted; Replay reads them back ordered by
// sequence_num, which Apply takes from an in-process per-shard counter
// before inserting the row.
type entryRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	ShardID     uint16 `gorm:"not null;index:idx_metadata_log_shard"`
	Kind        int    `gorm:"not null"`
	UserID      uint32 `gorm:"not null"`
	Payload     []byte
	SequenceNum uint64 `gorm:"not null"`
}

// TableName pins the table name so it doesn't shift if the struct is renamed.
func (entryRow) TableName() string { return "metadata_log" }

// PostgresConfig configures the Postgres-backed MetadataLog.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MigrationSource string // e.g. "file://pkg/metadatalog/migrations"
}

// ApplyDefaults fills in unset fields with sane production defaults.
func (c *PostgresConfig) ApplyDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
}

// PostgresLog is the default MetadataLog, backed by a Postgres table managed
// through GORM. One process-wide sequence counter is kept per shard so that
// SequenceNum assignment never requires a round trip to read MAX(sequence_num).
type PostgresLog struct {
	db *gorm.DB

	mu   sync.Mutex
	seqs map[uint16]uint64
}

// NewPostgresLog opens the database connection, runs pending migrations, and
// primes the per-shard sequence counters from the highest persisted
// sequence_num so a restart never reissues a SequenceNum.
func NewPostgresLog(ctx context.Context, cfg PostgresConfig) (*PostgresLog, error) {
	cfg.ApplyDefaults()

	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("metadatalog: migrate: %w", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("metadatalog: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("metadatalog: underlying db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.AutoMigrate(&entryRow{}); err != nil {
		return nil, fmt.Errorf("metadatalog: automigrate: %w", err)
	}

	l := &PostgresLog{db: db, seqs: make(map[uint16]uint64)}
	if err := l.primeSequences(ctx); err != nil {
		return nil, fmt.Errorf("metadatalog: prime sequences: %w", err)
	}

	logger.Info("metadata log connected", logger.Source("metadatalog"))
	return l, nil
}

// runMigrations applies any SQL migrations found at cfg.MigrationSource.
// A log with no explicit migration source relies on AutoMigrate alone.
func runMigrations(cfg PostgresConfig) error {
	if cfg.MigrationSource == "" {
		return nil
	}
	m, err := migrate.New(cfg.MigrationSource, cfg.DSN)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func (l *PostgresLog) primeSequences(ctx context.Context) error {
	var rows []struct {
		ShardID uint16
		Max     uint64
	}
	if err := l.db.WithContext(ctx).
		Model(&entryRow{}).
		Select("shard_id, MAX(sequence_num) as max").
		Group("shard_id").
		Scan(&rows).Error; err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rows {
		l.seqs[r.ShardID] = r.Max
	}
	return nil
}

// Apply persists entry under the next SequenceNum for shardID and returns
// the entry with that number filled in.
func (l *PostgresLog) Apply(ctx context.Context, shardID uint16, entry Entry) (Entry, error) {
	l.mu.Lock()
	l.seqs[shardID]++
	entry.SequenceNum = l.seqs[shardID]
	l.mu.Unlock()

	row := entryRow{
		ShardID:     shardID,
		Kind:        int(entry.Kind),
		UserID:      entry.UserID,
		Payload:     entry.Payload,
		SequenceNum: entry.SequenceNum,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Entry{}, fmt.Errorf("metadatalog: apply %s: %w", entry.Kind, err)
	}
	return entry, nil
}

// Replay streams every entry previously applied for shardID, in commit
// order, invoking fn for each. A fn error stops the replay and is returned
// to the caller.
func (l *PostgresLog) Replay(ctx context.Context, shardID uint16, fn func(Entry) error) error {
	const batchSize = 500

	rows := make([]entryRow, 0, batchSize)
	result := l.db.WithContext(ctx).
		Where("shard_id = ?", shardID).
		Order("sequence_num ASC").
		FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
			for _, row := range rows {
				entry := Entry{
					Kind:        MetadataEntryKind(row.Kind),
					UserID:      row.UserID,
					Payload:     row.Payload,
					SequenceNum: row.SequenceNum,
				}
				if err := fn(entry); err != nil {
					return err
				}
			}
			return nil
		})
	if result.Error != nil {
		return fmt.Errorf("metadatalog: replay shard %d: %w", shardID, result.Error)
	}
	return nil
}

// Close releases the underlying connection pool.
func (l *PostgresLog) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
