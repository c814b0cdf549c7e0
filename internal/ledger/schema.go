package ledger

// Schema definitions for the award ledger.
// Compatible with both SQLite and PostgreSQL.

// The composite primary key on (award_date, user_id) is what makes
// TryCreate atomic: at most one award row can ever exist for a user
// and day, no matter how many writers race.
const schemaAwards = `
CREATE TABLE IF NOT EXISTS awards (
    award_date TEXT NOT NULL,
    user_id TEXT NOT NULL,
    box_type TEXT NOT NULL,
    box_name TEXT NOT NULL,
    rarity TEXT NOT NULL,
    karma INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (award_date, user_id)
);

CREATE INDEX IF NOT EXISTS idx_awards_box_type ON awards(award_date, box_type);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAwards,
	}
}
