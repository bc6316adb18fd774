package store

// schemaSQL is the full schema. Deduplication is enforced by the storage
// engine, not application code. SQLite treats NULLs as distinct inside the
// inline UNIQUE constraint, so the expression index is what actually makes
// entries without a part-of-speech deduplicate.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS words (
	name TEXT,
	content TEXT,
	pos TEXT,
	UNIQUE (name, content, pos)
);

CREATE UNIQUE INDEX IF NOT EXISTS words_identity ON words (name, content, IFNULL(pos, ''));
`
