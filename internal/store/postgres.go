package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/voyagen/tvonline/internal/models"
)

// Postgres implements Store and VectorIndex using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// LoadState reads favorites, history, playlists and settings.
func (p *Postgres) LoadState(ctx context.Context) (models.State, error) {
	st := models.State{Settings: models.DefaultSettings()}

	var err error
	if st.Favorites, err = p.orderedIDs(ctx, "favorites"); err != nil {
		return st, fmt.Errorf("LoadState favorites: %w", err)
	}
	if st.History, err = p.orderedIDs(ctx, "history"); err != nil {
		return st, fmt.Errorf("LoadState history: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, name, source, channels, channel_count, created_at
		 FROM playlists ORDER BY created_at, seq`)
	if err != nil {
		return st, fmt.Errorf("LoadState playlists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			return st, fmt.Errorf("LoadState scan: %w", err)
		}
		st.Playlists = append(st.Playlists, *pl)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("LoadState rows: %w", err)
	}

	err = p.pool.QueryRow(ctx, `SELECT theme, volume FROM settings WHERE id = 1`).
		Scan(&st.Settings.Theme, &st.Settings.Volume)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return st, fmt.Errorf("LoadState settings: %w", err)
	}
	return st, nil
}

func (p *Postgres) orderedIDs(ctx context.Context, table string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT channel_id FROM `+table+` ORDER BY position`)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// SaveFavorites replaces the favorites table contents.
func (p *Postgres) SaveFavorites(ctx context.Context, ids []string) error {
	if err := p.replaceIDs(ctx, "favorites", ids); err != nil {
		return fmt.Errorf("SaveFavorites: %w", err)
	}
	return nil
}

// SaveHistory replaces the history table contents.
func (p *Postgres) SaveHistory(ctx context.Context, ids []string) error {
	if err := p.replaceIDs(ctx, "history", ids); err != nil {
		return fmt.Errorf("SaveHistory: %w", err)
	}
	return nil
}

// replaceIDs rewrites an ordered id table inside one transaction.
func (p *Postgres) replaceIDs(ctx context.Context, table string, ids []string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return err
	}
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id, i}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, []string{"channel_id", "position"}, pgx.CopyFromRows(rows)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveSettings upserts the single settings row.
func (p *Postgres) SaveSettings(ctx context.Context, s models.Settings) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO settings (id, theme, volume) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET theme = EXCLUDED.theme, volume = EXCLUDED.volume`,
		s.Theme, s.Volume,
	)
	if err != nil {
		return fmt.Errorf("SaveSettings: %w", err)
	}
	return nil
}

// SavePlaylist inserts or replaces a playlist by id.
func (p *Postgres) SavePlaylist(ctx context.Context, pl models.Playlist) error {
	data, err := json.Marshal(pl.Channels)
	if err != nil {
		return fmt.Errorf("SavePlaylist marshal: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO playlists (id, name, source, channels, channel_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, source = EXCLUDED.source, channels = EXCLUDED.channels,
		   channel_count = EXCLUDED.channel_count`,
		pl.ID, pl.Name, string(pl.Source), data, pl.Count, pl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("SavePlaylist: %w", err)
	}
	return nil
}

// DeletePlaylist removes a playlist; embeddings cascade.
func (p *Postgres) DeletePlaylist(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeletePlaylist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPlaylist returns one playlist with its channels.
func (p *Postgres) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, name, source, channels, channel_count, created_at
		 FROM playlists WHERE id = $1`, id)
	pl, err := scanPlaylist(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPlaylist: %w", err)
	}
	return pl, nil
}

// ListPlaylists returns summaries without loading channel documents.
func (p *Postgres) ListPlaylists(ctx context.Context) ([]models.PlaylistSummary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, source, channel_count, created_at FROM playlists ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("ListPlaylists: %w", err)
	}
	defer rows.Close()

	out := []models.PlaylistSummary{}
	for rows.Next() {
		var s models.PlaylistSummary
		var source string
		if err := rows.Scan(&s.ID, &s.Name, &source, &s.Count, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListPlaylists scan: %w", err)
		}
		s.Source = models.SourceKind(source)
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanPlaylist(row pgx.Row) (*models.Playlist, error) {
	var pl models.Playlist
	var source string
	var data []byte
	var created time.Time
	if err := row.Scan(&pl.ID, &pl.Name, &source, &data, &pl.Count, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &pl.Channels); err != nil {
		return nil, fmt.Errorf("decode channels of %s: %w", pl.ID, err)
	}
	pl.Source = models.SourceKind(source)
	pl.CreatedAt = created.UTC()
	return &pl, nil
}

// --- vector index ---

// ChannelsWithoutEmbeddings returns channels of a saved playlist that have no embedding yet.
func (p *Postgres) ChannelsWithoutEmbeddings(ctx context.Context, playlistID string, limit int) ([]models.Channel, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT c.doc
		 FROM playlists pl, jsonb_array_elements(pl.channels) AS c(doc)
		 WHERE pl.id = $1
		   AND NOT EXISTS (
		     SELECT 1 FROM channel_embeddings e
		     WHERE e.playlist_id = pl.id AND e.channel_id = c.doc->>'id')
		 LIMIT $2`,
		playlistID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ChannelsWithoutEmbeddings: %w", err)
	}
	defer rows.Close()

	var out []models.Channel
	seen := make(map[string]struct{})
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("ChannelsWithoutEmbeddings scan: %w", err)
		}
		var ch models.Channel
		if err := json.Unmarshal(data, &ch); err != nil {
			return nil, fmt.Errorf("ChannelsWithoutEmbeddings decode: %w", err)
		}
		// Xtream playlists may repeat ids; one embedding per id is enough.
		if _, dup := seen[ch.ID]; dup {
			continue
		}
		seen[ch.ID] = struct{}{}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// StoreEmbeddings upserts one vector per channel in a single batch.
func (p *Postgres) StoreEmbeddings(ctx context.Context, playlistID string, channels []models.Channel, embeddings [][]float32) error {
	if len(channels) != len(embeddings) {
		return fmt.Errorf("StoreEmbeddings: %d channels but %d embeddings", len(channels), len(embeddings))
	}
	batch := &pgx.Batch{}
	for i, ch := range channels {
		doc, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("StoreEmbeddings marshal: %w", err)
		}
		batch.Queue(
			`INSERT INTO channel_embeddings (playlist_id, channel_id, document, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (playlist_id, channel_id) DO UPDATE SET
			   document = EXCLUDED.document, embedding = EXCLUDED.embedding`,
			playlistID, ch.ID, doc, pgvector.NewVector(embeddings[i]),
		)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("StoreEmbeddings: %w", err)
	}
	return nil
}

// SemanticSearch orders indexed channels by cosine distance to queryVec.
func (p *Postgres) SemanticSearch(ctx context.Context, queryVec []float32, limit int) ([]SemanticResult, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT playlist_id, document, 1 - (embedding <=> $1) AS score
		 FROM channel_embeddings
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(queryVec), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("SemanticSearch: %w", err)
	}
	defer rows.Close()

	out := []SemanticResult{}
	for rows.Next() {
		var r SemanticResult
		var doc []byte
		if err := rows.Scan(&r.PlaylistID, &doc, &r.Score); err != nil {
			return nil, fmt.Errorf("SemanticSearch scan: %w", err)
		}
		if err := json.Unmarshal(doc, &r.Channel); err != nil {
			return nil, fmt.Errorf("SemanticSearch decode: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
