package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the lexical index and metadata stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-kb/data/kb.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-kb", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kb.db")

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LexicalIndex returns a LexicalIndex backed by the FTS5 table.
func (s *Store) LexicalIndex() driven.LexicalIndex {
	return &lexicalIndex{store: s}
}

// ChunkStore returns a ChunkStore backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// MembershipStore returns a MembershipStore backed by this store.
func (s *Store) MembershipStore() driven.MembershipStore {
	return &membershipStore{store: s}
}

// UserStore returns a UserStore backed by this store.
func (s *Store) UserStore() driven.UserStore {
	return &userStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveItem stores or updates an item and replaces its attached people.
func (s *chunkStore) SaveItem(ctx context.Context, item *domain.Item) error {
	tagsJSON, err := json.Marshal(nonNil(item.Tags))
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, modality, title, size, tags, sensitivity, project_id, creator_id,
			indexing_status, popularity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			modality = excluded.modality,
			title = excluded.title,
			size = excluded.size,
			tags = excluded.tags,
			sensitivity = excluded.sensitivity,
			project_id = excluded.project_id,
			creator_id = excluded.creator_id,
			indexing_status = excluded.indexing_status,
			popularity = excluded.popularity,
			created_at = excluded.created_at
	`, item.ID, string(item.Modality), item.Title, item.Size, string(tagsJSON), int(item.Sensitivity),
		nullString(item.ProjectID), nullString(item.CreatorID), string(item.IndexingStatus),
		item.Popularity, toMillis(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_people WHERE item_id = ?", item.ID); err != nil {
		return fmt.Errorf("clearing item people: %w", err)
	}
	for _, person := range item.People {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO item_people (item_id, person_id) VALUES (?, ?)", item.ID, person); err != nil {
			return fmt.Errorf("attaching person: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetItem retrieves an item by ID.
func (s *chunkStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, modality, title, size, tags, sensitivity, project_id, creator_id,
			indexing_status, popularity, created_at
		FROM items WHERE id = ?
	`, id)

	var item domain.Item
	var cols itemColumns
	if err := row.Scan(&item.ID, &cols.modality, &item.Title, &item.Size, &cols.tags, &cols.sensitivity,
		&cols.projectID, &cols.creatorID, &cols.status, &item.Popularity, &cols.createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	if err := cols.apply(&item); err != nil {
		return nil, err
	}

	people, err := s.store.peopleFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	item.People = people[id]
	return &item, nil
}

// SaveChunks stores chunks. The parent item must already exist.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, item_id, content, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			item_id = excluded.item_id,
			content = excluded.content,
			position = excluded.position
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.ItemID, chunk.Content, chunk.Position); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves chunks by ID together with their item metadata.
func (s *chunkStore) GetChunks(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	result := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.store.db.QueryContext(ctx,
		chunkSelect+" WHERE c.id IN ("+placeholders(len(ids))+")", toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.store.attachPeople(ctx, chunks); err != nil {
		return nil, err
	}

	for _, c := range chunks {
		result[c.ID] = c
	}
	return result, nil
}

// ListChunks returns an item's chunks in position order.
func (s *chunkStore) ListChunks(ctx context.Context, itemID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		chunkSelect+" WHERE c.item_id = ? ORDER BY c.position", itemID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.store.attachPeople(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteItem removes an item. Chunks, attachments and FTS rows cascade.
func (s *chunkStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// chunkSelect joins chunks to their item so every chunk carries its
// parent metadata.
const chunkSelect = `
	SELECT c.id, c.item_id, c.content, c.position,
		i.modality, i.title, i.size, i.tags, i.sensitivity, i.project_id, i.creator_id,
		i.indexing_status, i.popularity, i.created_at
	FROM chunks c
	JOIN items i ON i.id = c.item_id`

// itemColumns holds item columns that need conversion after scanning.
type itemColumns struct {
	modality    string
	tags        string
	sensitivity int
	projectID   sql.NullString
	creatorID   sql.NullString
	status      string
	createdAt   int64
}

func (c itemColumns) apply(item *domain.Item) error {
	item.Modality = domain.Modality(c.modality)
	item.Sensitivity = domain.SensitivityLevel(c.sensitivity)
	item.ProjectID = c.projectID.String
	item.CreatorID = c.creatorID.String
	item.IndexingStatus = domain.IndexingStatus(c.status)
	item.CreatedAt = fromMillis(c.createdAt)
	if c.tags != "" {
		if err := json.Unmarshal([]byte(c.tags), &item.Tags); err != nil {
			return fmt.Errorf("unmarshalling tags: %w", err)
		}
	}
	return nil
}

// scanChunks reads chunkSelect rows and closes them.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var item domain.Item
		var cols itemColumns
		var id, content string
		var position int
		if err := rows.Scan(&id, &item.ID, &content, &position,
			&cols.modality, &item.Title, &item.Size, &cols.tags, &cols.sensitivity,
			&cols.projectID, &cols.creatorID, &cols.status, &item.Popularity, &cols.createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := cols.apply(&item); err != nil {
			return nil, err
		}
		chunks = append(chunks, domain.ChunkFromItem(&item, id, content, position))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// attachPeople fills People on each chunk from item_people.
func (s *Store) attachPeople(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var itemIDs []string
	for _, c := range chunks {
		if !seen[c.ItemID] {
			seen[c.ItemID] = true
			itemIDs = append(itemIDs, c.ItemID)
		}
	}
	people, err := s.peopleFor(ctx, itemIDs)
	if err != nil {
		return err
	}
	for i := range chunks {
		chunks[i].People = people[chunks[i].ItemID]
	}
	return nil
}

// peopleFor returns attached person IDs keyed by item ID.
func (s *Store) peopleFor(ctx context.Context, itemIDs []string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, person_id FROM item_people WHERE item_id IN ("+placeholders(len(itemIDs))+
			") ORDER BY item_id, person_id", toArgs(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("querying item people: %w", err)
	}
	defer rows.Close()

	people := make(map[string][]string)
	for rows.Next() {
		var itemID, personID string
		if err := rows.Scan(&itemID, &personID); err != nil {
			return nil, fmt.Errorf("scanning item people: %w", err)
		}
		people[itemID] = append(people[itemID], personID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating item people: %w", err)
	}
	return people, nil
}

// ==================== Helpers ====================

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func toArgs[T any](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Times are stored as Unix milliseconds so range filters compare numerically.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
