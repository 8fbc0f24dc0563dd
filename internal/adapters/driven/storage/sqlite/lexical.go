package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// lexicalIndex implements driven.LexicalIndex over the FTS5 table.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// Search runs an FTS5 MATCH over chunks of STORED items and returns hits
// ordered by bm25.
// bm25 is negated so that larger is better.
func (l *lexicalIndex) Search(ctx context.Context, q driven.LexicalQuery) ([]driven.LexicalHit, error) {
	if q.Query == "" || q.Limit <= 0 {
		return nil, nil
	}

	var b whereBuilder
	b.add("chunks_fts MATCH ?", q.Query)
	b.add("i.indexing_status = ?", string(domain.StatusStored))
	b.addModalities(q.Modalities)
	b.addFilters(q.Filters)
	b.addAccess(q.Access)

	query := `
		SELECT c.id, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN items i ON i.id = c.item_id
		WHERE ` + b.String() + `
		ORDER BY score DESC, c.id
		LIMIT ?`

	rows, err := l.store.db.QueryContext(ctx, query, append(b.args, q.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("full-text query: %w", err)
	}
	defer rows.Close()

	var hits []driven.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var h driven.LexicalHit
		if err := rows.Scan(&h.ChunkID, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

// whereBuilder accumulates AND-ed predicates over the items alias "i".
type whereBuilder struct {
	clauses []string
	args    []any
}

func (b *whereBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

func (b *whereBuilder) String() string {
	if len(b.clauses) == 0 {
		return "1"
	}
	return strings.Join(b.clauses, " AND ")
}

func (b *whereBuilder) addModalities(modalities []domain.Modality) {
	if len(modalities) == 0 {
		return
	}
	names := make([]string, len(modalities))
	for i, m := range modalities {
		names[i] = string(m)
	}
	b.add("i.modality IN ("+placeholders(len(names))+")", toArgs(names)...)
}

func (b *whereBuilder) addFilters(f domain.SearchFilters) {
	if len(f.ItemIDs) > 0 {
		b.add("i.id IN ("+placeholders(len(f.ItemIDs))+")", toArgs(f.ItemIDs)...)
	}
	if len(f.Tags) > 0 {
		b.add("EXISTS (SELECT 1 FROM json_each(i.tags) WHERE json_each.value IN ("+
			placeholders(len(f.Tags))+"))", toArgs(f.Tags)...)
	}
	if f.MinSize > 0 {
		b.add("i.size >= ?", f.MinSize)
	}
	if f.MaxSize > 0 {
		b.add("i.size <= ?", f.MaxSize)
	}
	if !f.CreatedAfter.IsZero() {
		b.add("i.created_at >= ?", f.CreatedAfter.UnixMilli())
	}
	if !f.CreatedBefore.IsZero() {
		b.add("i.created_at <= ?", f.CreatedBefore.UnixMilli())
	}
}

// addAccess translates the access filter into the OR of public,
// created-by-me, person-attached and per-project sensitivity conditions.
// A nil filter adds nothing. Unclassified items (NULL project) can only
// match through the first three.
func (b *whereBuilder) addAccess(f *domain.AccessFilter) {
	if f.Unrestricted() {
		return
	}

	var ors []string
	var args []any
	if f.IncludePublic {
		ors = append(ors, "i.sensitivity = ?")
		args = append(args, int(domain.SensitivityPublic))
	}
	if f.CreatorID != "" {
		ors = append(ors, "i.creator_id = ?")
		args = append(args, f.CreatorID)
	}
	if f.PersonID != "" {
		ors = append(ors, "EXISTS (SELECT 1 FROM item_people ip WHERE ip.item_id = i.id AND ip.person_id = ?)")
		args = append(args, f.PersonID)
	}
	for _, cond := range f.Conditions {
		if len(cond.Allowed) == 0 {
			continue
		}
		ors = append(ors, "(i.project_id = ? AND i.sensitivity IN ("+placeholders(len(cond.Allowed))+"))")
		args = append(args, cond.ProjectID)
		for _, level := range cond.Allowed {
			args = append(args, int(level))
		}
	}

	if len(ors) == 0 {
		b.add("0")
		return
	}
	b.add("("+strings.Join(ors, " OR ")+")", args...)
}
