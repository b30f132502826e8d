package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
)

// Drivers lists the accepted --driver names
var Drivers = []string{"postgres", "mysql", "sqlite"}

var driverNames = map[string]string{
	"postgres":   "pgx",
	"postgresql": "pgx",
	"pgx":        "pgx",
	"mysql":      "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

// SQL reads records from a relational database. Types map to tables, scalar
// and reference fields to columns, and collections to join tables.
type SQL struct {
	db     *sql.DB
	driver string
}

// Open connects to a database with one of the registered drivers
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	name, ok := driverNames[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pooling configuration
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return NewSQL(db, name), nil
}

// NewSQL wraps an open database handle. driver is the database/sql driver
// name and only selects identifier quoting.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

// Close closes the database handle
func (s *SQL) Close() error {
	return s.db.Close()
}

// Describe discovers scalar columns for every type declared without fields.
func (s *SQL) Describe(ctx context.Context, reg *schema.Registry) error {
	for _, t := range reg.Descriptors() {
		if len(t.Fields) > 0 {
			continue
		}
		columns, err := s.columns(ctx, t)
		if err != nil {
			return fmt.Errorf("describe %s: %w", t.Name, err)
		}
		for _, c := range columns {
			if c == t.IDColumn {
				continue
			}
			t.Fields = append(t.Fields, schema.FieldDescriptor{Name: c, Column: c})
		}
		if err := t.Resolve(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQL) columns(ctx context.Context, t *schema.TypeDescriptor) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.quote(t.Table)+" WHERE 1=0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// Records implements Source
func (s *SQL) Records(ctx context.Context, t *schema.TypeDescriptor, fn func(Record) error) error {
	collections := make(map[string]map[string][]string)
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Kind != schema.KindCollection {
			continue
		}
		links, err := s.links(ctx, f)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
		collections[f.Name] = links
	}

	var columnFields []*schema.FieldDescriptor
	cols := []string{s.quote(t.IDColumn)}
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Kind == schema.KindCollection {
			continue
		}
		columnFields = append(columnFields, f)
		cols = append(cols, s.quote(f.Column))
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), s.quote(t.Table), s.quote(t.IDColumn))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	defer rows.Close()

	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("%s: scan: %w", t.Name, err)
		}
		id := idString(raw[0])
		if id == "" {
			return fmt.Errorf("%s: %w", t.Name, ErrMissingID)
		}

		rec := Record{ID: id, Fields: make([]Field, 0, len(t.Fields))}
		for i, f := range columnFields {
			v := raw[i+1]
			switch f.Kind {
			case schema.KindReference:
				field := Field{Name: f.Name, Kind: schema.KindReference}
				if target := idString(v); target != "" {
					field.Refs = []Ref{{Type: f.Target, ID: target}}
				}
				rec.Fields = append(rec.Fields, field)
			default:
				rec.Fields = append(rec.Fields, Field{Name: f.Name, Kind: schema.KindScalar, Value: scalarValue(v, f.Format)})
			}
		}
		for i := range t.Fields {
			f := &t.Fields[i]
			if f.Kind != schema.KindCollection {
				continue
			}
			field := Field{Name: f.Name, Kind: schema.KindCollection}
			for _, target := range collections[f.Name][id] {
				field.Refs = append(field.Refs, Ref{Type: f.Target, ID: target})
			}
			rec.Fields = append(rec.Fields, field)
		}

		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	return nil
}

// links loads a join table as source id -> target ids
func (s *SQL) links(ctx context.Context, f *schema.FieldDescriptor) (map[string][]string, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s, %s",
		s.quote(f.SourceColumn), s.quote(f.TargetColumn), s.quote(f.Through),
		s.quote(f.SourceColumn), s.quote(f.TargetColumn))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var src, dst any
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		from, to := idString(src), idString(dst)
		if from == "" || to == "" {
			continue
		}
		links[from] = append(links[from], to)
	}
	return links, rows.Err()
}

func (s *SQL) quote(ident string) string {
	q := `"`
	if s.driver == "mysql" {
		q = "`"
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = q + p + q
	}
	return strings.Join(parts, ".")
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(t, 10)
	case []byte:
		return string(t)
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func scalarValue(v any, format schema.FieldFormat) graph.Value {
	if v == nil {
		return graph.Null()
	}
	switch format {
	case schema.FormatText:
		return graph.TextValue(stringOf(v))
	case schema.FormatWKT:
		return graph.GeometryValue(stringOf(v))
	case schema.FormatFile:
		return graph.OpaqueValue(stringOf(v))
	default:
		return graph.FromAny(v)
	}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return graph.FromAny(v).String()
	}
}
