package runstore

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    registry TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    completed INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS repo_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    repo TEXT NOT NULL,
    url TEXT,
    state TEXT NOT NULL,
    error TEXT,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_repo_runs_run_id ON repo_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_repo_runs_repo ON repo_runs(repo);
`
