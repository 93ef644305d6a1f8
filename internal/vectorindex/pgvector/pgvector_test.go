package pgvector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestBuildSearch(t *testing.T) {
	t.Parallel()
	filter := vectorindex.And(
		vectorindex.Eq("location", "Kisumu"),
		vectorindex.Eq("required_skills", "go"),
		vectorindex.Gte("salary_min", 1000),
	)
	sql, args := buildSearch(`"skillbridge_jobs"`, filter, 6)

	for _, want := range []string{
		`1 - (embedding <=> $1::vector) AS score`,
		`payload->>'location' = $2`,
		`payload->'required_skills' ? $3`,
		`(payload->>'salary_min')::numeric >= $4`,
		`ORDER BY embedding <=> $1::vector, seq`,
		`LIMIT 6`,
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in query:\n%s", want, sql)
		}
	}
	if len(args) != 3 || args[0] != "Kisumu" || args[1] != "go" || args[2] != float64(1000) {
		t.Fatalf("unexpected args %#v", args)
	}
}

func TestBuildScanWithoutFilter(t *testing.T) {
	t.Parallel()
	sql, args := buildScan(`"skillbridge_resumes"`, vectorindex.Filter{}, 50)
	if strings.Contains(sql, "WHERE") {
		t.Fatalf("unfiltered scan must not have a WHERE clause:\n%s", sql)
	}
	if !strings.Contains(sql, "ORDER BY seq") || !strings.Contains(sql, "LIMIT 50") {
		t.Fatalf("unexpected scan query:\n%s", sql)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args %#v", args)
	}
}

func TestBuildScanNumbersFromFirstArg(t *testing.T) {
	t.Parallel()
	sql, args := buildScan("t", vectorindex.CandidateFilters{MinExperience: 3}.Filter(), 5)
	if !strings.Contains(sql, "(payload->>'experience_years')::numeric >= $1") {
		t.Fatalf("unexpected scan query:\n%s", sql)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args %#v", args)
	}
}

func TestRecreateStatements(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	b := New(db, "", nil)
	if err := b.Recreate(context.Background(), vectorindex.CollectionJobs, 768); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if len(db.execs) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(db.execs))
	}
	if !strings.Contains(db.execs[1].sql, `DROP TABLE IF EXISTS "skillbridge_jobs"`) {
		t.Fatalf("unexpected drop: %s", db.execs[1].sql)
	}
	if !strings.Contains(db.execs[2].sql, "embedding vector(768)") {
		t.Fatalf("unexpected create: %s", db.execs[2].sql)
	}
}

func TestUpsertEncodesPayloadAndVector(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	b := New(db, "sb_", nil)
	err := b.Upsert(context.Background(), vectorindex.CollectionResumes, vectorindex.Record{
		ID:      "0b7e6a2c-3c64-4d83-9c5a-1f1f3a9e8e11",
		Vector:  []float32{1, 0.5},
		Payload: map[string]any{"user_id": "u-1"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	call := db.execs[0]
	if !strings.Contains(call.sql, `INSERT INTO "sb_resumes"`) {
		t.Fatalf("unexpected insert: %s", call.sql)
	}
	if call.args[1] != "[1,0.5]" {
		t.Fatalf("unexpected vector literal %#v", call.args[1])
	}
	if call.args[2] != `{"user_id":"u-1"}` {
		t.Fatalf("unexpected payload %#v", call.args[2])
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"undefined table", &pgconn.PgError{Code: "42P01"}, vectorindex.ErrCollectionNotInitialized},
		{"network", errors.New("dial tcp: connection refused"), vectorindex.ErrStorageUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := New(&fakeDB{err: tt.err}, "", nil)
			err := b.Delete(context.Background(), vectorindex.CollectionJobs, "0b7e6a2c-3c64-4d83-9c5a-1f1f3a9e8e11")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
