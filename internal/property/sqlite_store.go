package property

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore reads property records from the desktop application's
// SQLite database. Media references and feature lists are stored as
// JSON columns there; everything else maps to nullable scalar columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath.
// Use ":memory:" for an in-memory database (tests).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		title TEXT,
		price REAL,
		property_type TEXT,
		transaction_type TEXT,
		bedrooms INTEGER,
		bathrooms REAL,
		area_sqft REAL,
		year_built INTEGER,
		description TEXT,
		address TEXT,
		city TEXT,
		region TEXT,
		postal_code TEXT,
		country TEXT,
		latitude REAL,
		longitude REAL,
		media TEXT,
		features TEXT,
		agent_name TEXT,
		agent_email TEXT,
		agent_phone TEXT,
		agent_agency TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const recordColumns = `id, title, price, property_type, transaction_type, bedrooms, bathrooms,
	area_sqft, year_built, description, address, city, region, postal_code, country,
	latitude, longitude, media, features, agent_name, agent_email, agent_phone, agent_agency`

// GetProperty returns one record by identifier.
func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM properties WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query property %s: %w", id, err)
	}
	return rec, nil
}

// ListProperties returns all records ordered by identifier.
func (s *SQLiteStore) ListProperties(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// InsertProperty writes a record. The pipeline never calls this; it
// exists for fixtures and the desktop app's import path.
func (s *SQLiteStore) InsertProperty(ctx context.Context, r *Record) error {
	mediaJSON, err := json.Marshal(r.Media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	featuresJSON, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO properties (`+recordColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Title, r.Price, r.Type, r.Transaction, r.Bedrooms, r.Bathrooms,
		r.AreaSqFt, r.YearBuilt, r.Description, r.Address, r.City, r.Region,
		r.PostalCode, r.Country, r.Latitude, r.Longitude,
		string(mediaJSON), string(featuresJSON),
		r.AgentName, r.AgentEmail, r.AgentPhone, r.AgentAgency,
	)
	if err != nil {
		return fmt.Errorf("insert property %s: %w", r.ID, err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec                                             Record
		title, ptype, transaction, description          sql.NullString
		address, city, region, postalCode, country      sql.NullString
		agentName, agentEmail, agentPhone, agentOrg     sql.NullString
		price, bathrooms, areaSqFt, latitude, longitude sql.NullFloat64
		bedrooms, yearBuilt                             sql.NullInt64
		mediaJSON, featuresJSON                         sql.NullString
	)

	err := sc.Scan(&rec.ID, &title, &price, &ptype, &transaction, &bedrooms, &bathrooms,
		&areaSqFt, &yearBuilt, &description, &address, &city, &region, &postalCode, &country,
		&latitude, &longitude, &mediaJSON, &featuresJSON,
		&agentName, &agentEmail, &agentPhone, &agentOrg)
	if err != nil {
		return nil, err
	}

	rec.Title = nullStrPtr(title)
	rec.Price = floatPtr(price)
	rec.Type = nullStrPtr(ptype)
	rec.Transaction = nullStrPtr(transaction)
	rec.Bedrooms = nullIntPtr(bedrooms)
	rec.Bathrooms = floatPtr(bathrooms)
	rec.AreaSqFt = floatPtr(areaSqFt)
	rec.YearBuilt = nullIntPtr(yearBuilt)
	rec.Description = nullStrPtr(description)
	rec.Address = nullStrPtr(address)
	rec.City = nullStrPtr(city)
	rec.Region = nullStrPtr(region)
	rec.PostalCode = nullStrPtr(postalCode)
	rec.Country = nullStrPtr(country)
	rec.Latitude = floatPtr(latitude)
	rec.Longitude = floatPtr(longitude)
	rec.AgentName = nullStrPtr(agentName)
	rec.AgentEmail = nullStrPtr(agentEmail)
	rec.AgentPhone = nullStrPtr(agentPhone)
	rec.AgentAgency = nullStrPtr(agentOrg)

	if mediaJSON.Valid && mediaJSON.String != "" {
		if err := json.Unmarshal([]byte(mediaJSON.String), &rec.Media); err != nil {
			return nil, fmt.Errorf("decode media for %s: %w", rec.ID, err)
		}
		for i := range rec.Media {
			rec.Media[i].Kind = ParseMediaKind(string(rec.Media[i].Kind))
		}
	}
	if featuresJSON.Valid && featuresJSON.String != "" {
		if err := json.Unmarshal([]byte(featuresJSON.String), &rec.Features); err != nil {
			return nil, fmt.Errorf("decode features for %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func nullStrPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
