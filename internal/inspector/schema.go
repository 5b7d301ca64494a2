package inspector

// SQLite schema for the snapshot store. The database is rebuilt from the JSONL
// files on every Attach, so the schema carries no migrations.
const (
	createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT PRIMARY KEY,
    label TEXT NOT NULL DEFAULT '',
    taken_at TEXT NOT NULL
)`

	createObjectsTable = `
CREATE TABLE IF NOT EXISTS snapshot_objects (
    snapshot_id TEXT NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
    object_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    type_name TEXT NOT NULL,
    parent_id TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (snapshot_id, object_id)
)`

	createValuesTable = `
CREATE TABLE IF NOT EXISTS snapshot_values (
    snapshot_id TEXT NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
    object_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    property TEXT NOT NULL,
    owner TEXT NOT NULL,
    value_json TEXT NOT NULL,
    priority TEXT NOT NULL,
    description TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, object_id, owner, property)
)`

	createIndexes = `
CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
CREATE INDEX IF NOT EXISTS idx_objects_snapshot ON snapshot_objects(snapshot_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_values_object ON snapshot_values(snapshot_id, object_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_values_property ON snapshot_values(owner, property);
`
)

var schemaStatements = []string{
	createSnapshotsTable,
	createObjectsTable,
	createValuesTable,
	createIndexes,
}

// JSONL file names in DataDir.
const (
	snapshotsJSONL = "snapshots.jsonl"
	objectsJSONL   = "objects.jsonl"
	valuesJSONL    = "snapshot_values.jsonl"
)
