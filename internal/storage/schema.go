package storage

const schemaSQL = `
CREATE TABLE IF NOT EXISTS proposals (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    email            TEXT NOT NULL,
    phone            TEXT NOT NULL,
    tax_id           TEXT NOT NULL,
    property_value   REAL NOT NULL,
    down_payment     REAL NOT NULL,
    loan_amount      REAL NOT NULL,
    monthly_payment  REAL NOT NULL,
    total_amount     REAL NOT NULL,
    interest_rate    REAL NOT NULL,
    loan_term        INTEGER NOT NULL,
    signature        TEXT NOT NULL DEFAULT '',
    created_at_ns    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_proposals_created ON proposals(created_at_ns DESC);
CREATE INDEX IF NOT EXISTS idx_proposals_tax_id ON proposals(tax_id);
`
