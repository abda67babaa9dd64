package authorizer

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists delegations keyed by (subject, agent_id, tool_id) on top
// of a sqlite file, the pure-Go driver keeping the module cgo-free. Writes
// are serialized by the single shared *sql.DB connection, matching the
// "single writer is sufficient" requirement for the delegation store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (creating if absent) the sqlite-backed delegation store at
// path and ensures its schema exists.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open delegation store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS delegations (
	subject          TEXT NOT NULL,
	agent_id         TEXT NOT NULL,
	tool_id          TEXT NOT NULL,
	scopes           TEXT NOT NULL,
	not_after        INTEGER NOT NULL,
	issuer           TEXT NOT NULL,
	envelope         TEXT NOT NULL,
	max_amount_cents INTEGER,
	merchants        TEXT,
	PRIMARY KEY (subject, agent_id, tool_id)
)`)
	return err
}

// Upsert writes d, replacing any existing delegation for the same
// (subject, agent_id, tool_id).
func (s *Store) Upsert(d Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxAmount sql.NullInt64
	var merchants string
	if d.Constraints != nil {
		if d.Constraints.MaxAmountCents > 0 {
			maxAmount = sql.NullInt64{Int64: int64(d.Constraints.MaxAmountCents), Valid: true}
		}
		merchants = strings.Join(d.Constraints.Merchants, ",")
	}

	_, err := s.db.Exec(`
INSERT INTO delegations (subject, agent_id, tool_id, scopes, not_after, issuer, envelope, max_amount_cents, merchants)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(subject, agent_id, tool_id) DO UPDATE SET
	scopes = excluded.scopes,
	not_after = excluded.not_after,
	issuer = excluded.issuer,
	envelope = excluded.envelope,
	max_amount_cents = excluded.max_amount_cents,
	merchants = excluded.merchants`,
		d.Subject, d.AgentID, d.ToolID, strings.Join(d.Scopes, ","), d.NotAfter.Unix(), d.Issuer, d.Envelope, maxAmount, merchants)
	if err != nil {
		return fmt.Errorf("upsert delegation: %w", err)
	}
	return nil
}

// Find returns the delegation for (subject, agent_id, tool_id), or nil if
// none exists or it has expired.
func (s *Store) Find(subject, agentID, toolID string) (*Delegation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
SELECT scopes, not_after, issuer, envelope, max_amount_cents, merchants
FROM delegations WHERE subject = ? AND agent_id = ? AND tool_id = ?`, subject, agentID, toolID)

	var scopesCSV, issuer, envelope, merchantsCSV string
	var notAfter int64
	var maxAmount sql.NullInt64

	if err := row.Scan(&scopesCSV, &notAfter, &issuer, &envelope, &maxAmount, &merchantsCSV); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query delegation: %w", err)
	}

	d := &Delegation{
		Subject:  subject,
		AgentID:  agentID,
		ToolID:   toolID,
		Scopes:   splitNonEmpty(scopesCSV),
		NotAfter: time.Unix(notAfter, 0),
		Issuer:   issuer,
		Envelope: envelope,
	}
	if maxAmount.Valid || merchantsCSV != "" {
		d.Constraints = &Constraints{
			MaxAmountCents: int(maxAmount.Int64),
			Merchants:      splitNonEmpty(merchantsCSV),
		}
	}

	if d.Expired(time.Now()) {
		return nil, nil
	}
	return d, nil
}

// All returns every stored delegation, expired or not, for the /delegations
// listing endpoint.
func (s *Store) All() ([]Delegation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT subject, agent_id, tool_id, scopes, not_after, issuer, envelope, max_amount_cents, merchants FROM delegations`)
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	defer rows.Close()

	var out []Delegation
	for rows.Next() {
		var d Delegation
		var scopesCSV, merchantsCSV string
		var notAfter int64
		var maxAmount sql.NullInt64
		if err := rows.Scan(&d.Subject, &d.AgentID, &d.ToolID, &scopesCSV, &notAfter, &d.Issuer, &d.Envelope, &maxAmount, &merchantsCSV); err != nil {
			return nil, fmt.Errorf("scan delegation: %w", err)
		}
		d.Scopes = splitNonEmpty(scopesCSV)
		d.NotAfter = time.Unix(notAfter, 0)
		if maxAmount.Valid || merchantsCSV != "" {
			d.Constraints = &Constraints{MaxAmountCents: int(maxAmount.Int64), Merchants: splitNonEmpty(merchantsCSV)}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
