package vstpgvector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/relay-labs/chatrelay/pkg/ai/vstore"
	"github.com/relay-labs/chatrelay/pkg/errx"
)

const (
	DefaultSchema            = "public"
	DefaultTableName         = "vectors"
	DefaultMaxConnections    = 25
	DefaultConnectionTimeout = 10 * time.Second
)

// PgVectorProvider implements vstore.VectorStorer for PostgreSQL with pgvector.
// Cosine distance only; scores are reported as 1 - distance/2.
type PgVectorProvider struct {
	db        *sqlx.DB
	schema    string
	tableName string
	dimension int

	// Track whether we own the connection (and should close it)
	ownsConnection bool
}

// ProviderOption configures a PgVectorProvider
type ProviderOption func(*PgVectorProvider)

// WithSchema sets the Postgres schema
func WithSchema(schema string) ProviderOption {
	return func(p *PgVectorProvider) {
		p.schema = schema
	}
}

// WithTableName sets the vectors table name
func WithTableName(name string) ProviderOption {
	return func(p *PgVectorProvider) {
		p.tableName = name
	}
}

// NewPgVectorProvider creates a provider from a connection string
func NewPgVectorProvider(connStr string, dimension int, opts ...ProviderOption) (*PgVectorProvider, *errx.Error) {
	if connStr == "" {
		return nil, errorRegistry.New(ErrMissingConfig).
			WithDetail("error", "connection string is required")
	}
	if dimension <= 0 {
		return nil, errorRegistry.New(ErrMissingConfig).
			WithDetail("error", "dimension must be positive")
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectionTimeout)
	defer cancel()

	dbx, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, WrapError(err, ErrDatabaseConnection)
	}
	dbx.SetMaxOpenConns(DefaultMaxConnections)

	provider := &PgVectorProvider{
		db:             dbx,
		schema:         DefaultSchema,
		tableName:      DefaultTableName,
		dimension:      dimension,
		ownsConnection: true,
	}
	for _, opt := range opts {
		opt(provider)
	}

	if initErr := provider.initialize(ctx); initErr != nil {
		dbx.Close()
		return nil, initErr
	}
	return provider, nil
}

// NewPgVectorProviderFromDB creates a provider over an existing connection
func NewPgVectorProviderFromDB(dbx *sqlx.DB, dimension int, opts ...ProviderOption) (*PgVectorProvider, *errx.Error) {
	if dbx == nil {
		return nil, errorRegistry.New(ErrMissingConfig).
			WithDetail("error", "database connection is required")
	}
	if dimension <= 0 {
		return nil, errorRegistry.New(ErrMissingConfig).
			WithDetail("error", "dimension must be positive")
	}

	provider := &PgVectorProvider{
		db:        dbx,
		schema:    DefaultSchema,
		tableName: DefaultTableName,
		dimension: dimension,
	}
	for _, opt := range opts {
		opt(provider)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectionTimeout)
	defer cancel()

	if initErr := provider.initialize(ctx); initErr != nil {
		return nil, initErr
	}
	return provider, nil
}

func (p *PgVectorProvider) fullTableName() string {
	return fmt.Sprintf("%s.%s", p.schema, p.tableName)
}

// initialize ensures the extension and table exist
func (p *PgVectorProvider) initialize(ctx context.Context) *errx.Error {
	if err := p.db.PingContext(ctx); err != nil {
		return WrapError(err, ErrDatabaseConnection)
	}

	if _, err := p.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return WrapError(err, ErrDatabaseQuery).WithDetail("query", "CREATE EXTENSION")
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			vector     vector(%d) NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}',
			namespace  TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.fullTableName(), p.dimension)
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return WrapError(err, ErrDatabaseQuery).WithDetail("query", "CREATE TABLE")
	}

	idx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_vector ON %s USING hnsw (vector vector_cosine_ops)`,
		p.tableName, p.fullTableName())
	if _, err := p.db.ExecContext(ctx, idx); err != nil {
		return WrapError(err, ErrDatabaseQuery).WithDetail("query", "CREATE INDEX")
	}

	return nil
}

// Close closes the database connection if this provider owns it
func (p *PgVectorProvider) Close() error {
	if p.ownsConnection && p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Upsert inserts or updates vectors
func (p *PgVectorProvider) Upsert(ctx context.Context, vectors []vstore.Vector, opts ...vstore.Option) error {
	if len(vectors) == 0 {
		return nil
	}

	for _, v := range vectors {
		if v.ID == "" {
			return errorRegistry.New(ErrEmptyVectorID)
		}
		if len(v.Values) != p.dimension {
			return errorRegistry.New(ErrInvalidVectorDimension).
				WithDetail("expected", p.dimension).
				WithDetail("got", len(v.Values))
		}
	}

	options := vstore.ApplyOptions(opts...)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, vector, metadata, namespace, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			vector = EXCLUDED.vector,
			metadata = EXCLUDED.metadata,
			namespace = EXCLUDED.namespace,
			updated_at = NOW()`,
		p.fullTableName())

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return WrapError(err, ErrDatabaseQuery)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return WrapError(err, ErrDatabaseQuery)
	}
	defer stmt.Close()

	for _, v := range vectors {
		if _, err := stmt.ExecContext(ctx, v.ID, Vector(v.Values), Metadata(v.Metadata), options.Namespace); err != nil {
			return WrapError(err, ErrDatabaseQuery).WithDetail("vector_id", v.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return WrapError(err, ErrDatabaseQuery)
	}
	return nil
}

// Query performs cosine similarity search
func (p *PgVectorProvider) Query(ctx context.Context, vector []float32, opts ...vstore.Option) (*vstore.QueryResult, error) {
	if len(vector) != p.dimension {
		return nil, errorRegistry.New(ErrInvalidVectorDimension).
			WithDetail("expected", p.dimension).
			WithDetail("got", len(vector))
	}

	options := vstore.ApplyOptions(opts...)

	selectFields := "id"
	if options.IncludeValues {
		selectFields += ", vector"
	}
	if options.IncludeMetadata {
		selectFields += ", metadata"
	}

	query := fmt.Sprintf(`SELECT %s, vector <=> $1 AS distance FROM %s`,
		selectFields, p.fullTableName())

	args := []any{Vector(vector)}
	if options.Namespace != "" {
		query += " WHERE namespace = $2"
		args = append(args, options.Namespace)
	}
	query += fmt.Sprintf(" ORDER BY distance LIMIT %d", options.TopK)

	rows, err := p.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(err, ErrDatabaseQuery)
	}
	defer rows.Close()

	matches := make([]vstore.Match, 0, options.TopK)
	for rows.Next() {
		var (
			match    vstore.Match
			pgVector Vector
			metadata Metadata
			distance float32
		)

		scanArgs := []any{&match.ID}
		if options.IncludeValues {
			scanArgs = append(scanArgs, &pgVector)
		}
		if options.IncludeMetadata {
			scanArgs = append(scanArgs, &metadata)
		}
		scanArgs = append(scanArgs, &distance)

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, WrapError(err, ErrDatabaseQuery)
		}

		if options.IncludeValues {
			match.Values = []float32(pgVector)
		}
		if options.IncludeMetadata {
			match.Metadata = map[string]any(metadata)
		}

		// Cosine distance is in [0, 2]; map to a [0, 1] similarity
		match.Score = 1.0 - (distance / 2.0)
		if match.Score < options.MinScore {
			continue
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, ErrDatabaseQuery)
	}

	return &vstore.QueryResult{
		Matches:   matches,
		Namespace: options.Namespace,
	}, nil
}

// Delete removes vectors by IDs
func (p *PgVectorProvider) Delete(ctx context.Context, ids []string, opts ...vstore.Option) error {
	if len(ids) == 0 {
		return nil
	}

	options := vstore.ApplyOptions(opts...)

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, p.fullTableName())
	args := []any{pq.Array(ids)}
	if options.Namespace != "" {
		query += " AND namespace = $2"
		args = append(args, options.Namespace)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return WrapError(err, ErrDatabaseQuery)
	}
	return nil
}

// Fetch retrieves vectors by IDs
func (p *PgVectorProvider) Fetch(ctx context.Context, ids []string, opts ...vstore.Option) ([]vstore.Vector, error) {
	if len(ids) == 0 {
		return []vstore.Vector{}, nil
	}

	options := vstore.ApplyOptions(opts...)

	query := fmt.Sprintf(`SELECT id, vector, metadata FROM %s WHERE id = ANY($1)`, p.fullTableName())
	args := []any{pq.Array(ids)}
	if options.Namespace != "" {
		query += " AND namespace = $2"
		args = append(args, options.Namespace)
	}

	rows, err := p.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(err, ErrDatabaseQuery)
	}
	defer rows.Close()

	vectors := make([]vstore.Vector, 0, len(ids))
	for rows.Next() {
		var (
			id       string
			pgVector Vector
			metadata Metadata
		)
		if err := rows.Scan(&id, &pgVector, &metadata); err != nil {
			return nil, WrapError(err, ErrDatabaseQuery)
		}
		vectors = append(vectors, vstore.Vector{
			ID:       id,
			Values:   []float32(pgVector),
			Metadata: map[string]any(metadata),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, ErrDatabaseQuery)
	}

	return vectors, nil
}
