package extvar

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/gazettewatch/gazettewatch/internal/gazette"
)

// Open opens a database/sql handle for a connection record. Only postgres
// is supported today; an unsupported kind is a configuration error.
func Open(conn Connection) (*sql.DB, error) {
	switch conn.Kind {
	case "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("%w: unsupported connection kind %q", gazette.ErrConfig, conn.Kind)
	}
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		conn.Host, port, conn.Login, conn.Secret, conn.Schema)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// SQLTabular adapts a *sql.DB to the tabular row contract the term resolver
// consumes: every cell as a string, NULL as the empty string.
type SQLTabular struct {
	DB *sql.DB
}

func (t SQLTabular) QueryRows(ctx context.Context, query string) ([][]string, error) {
	rows, err := t.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]string
	for rows.Next() {
		cells := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
