package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/lib/pq"
)

var (
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE "?(\w+)"?`)
	referencesRe  = regexp.MustCompile(`(?i)REFERENCES "?(\w+)"?`)
)

// Foreign keys only work if the referenced table was created earlier in the
// statement list.
func TestTablesCreatedBeforeReferenced(t *testing.T) {
	created := map[string]bool{}
	for _, stmt := range tables {
		for _, m := range referencesRe.FindAllStringSubmatch(stmt, -1) {
			if !created[m[1]] {
				t.Errorf("table %q referenced before it is created", m[1])
			}
		}
		m := createTableRe.FindStringSubmatch(stmt)
		if m == nil {
			t.Fatalf("statement without CREATE TABLE: %q", stmt[:40])
		}
		created[m[1]] = true
	}
}

func TestSchemaContainsCoreTables(t *testing.T) {
	want := []string{
		"character", "character_death", "character_death_killer", "character_levelup",
		"event", "event_participant", "event_subscriber",
		"server_property", "server_prefixes", "role_auto", "role_joinable",
		"global_property",
	}
	created := map[string]bool{}
	for _, stmt := range tables {
		if m := createTableRe.FindStringSubmatch(stmt); m != nil {
			created[m[1]] = true
		}
	}
	for _, name := range want {
		if !created[name] {
			t.Errorf("missing table %q", name)
		}
	}
}

func TestTriggersAfterFunctions(t *testing.T) {
	if len(functions) == 0 || len(triggers) == 0 {
		t.Fatal("expected at least one function and one trigger")
	}
	for _, trig := range triggers {
		if !strings.Contains(trig, "update_modified_column") {
			t.Errorf("trigger does not use update_modified_column: %q", trig[:40])
		}
	}
}

func TestVersionEncoding(t *testing.T) {
	for _, v := range []int{0, 1, 7} {
		got, err := decodeVersion([]byte(encodeVersion(v)))
		if err != nil {
			t.Fatalf("decodeVersion(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("expected %d, got %d", v, got)
		}
	}

	if _, err := decodeVersion([]byte(`"one"`)); err == nil {
		t.Fatal("expected error for non-integer version")
	}
}

func TestIsUndefinedTable(t *testing.T) {
	if !isUndefinedTable(&pq.Error{Code: "42P01"}) {
		t.Fatal("expected 42P01 to read as undefined table")
	}
	if isUndefinedTable(&pq.Error{Code: "23505"}) {
		t.Fatal("unique violation is not an undefined table")
	}
	if isUndefinedTable(sql.ErrNoRows) {
		t.Fatal("ErrNoRows is not an undefined table")
	}
	wrapped := fmt.Errorf("query version: %w", &pq.Error{Code: "42P01"})
	if !isUndefinedTable(wrapped) {
		t.Fatal("expected wrapped 42P01 to read as undefined table")
	}
	if isUndefinedTable(errors.New("boom")) {
		t.Fatal("plain error is not an undefined table")
	}
}

func TestApplySkipsCurrentSchema(t *testing.T) {
	rec := &recordingExecer{}
	versionSet := false
	err := apply(context.Background(), rec, LatestVersion, func(int) error {
		versionSet = true
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(rec.stmts) != 0 {
		t.Fatalf("expected no DDL at current version, got %d statements", len(rec.stmts))
	}
	if versionSet {
		t.Fatal("version must not be rewritten at current version")
	}
}

func TestApplyProvisionsFromScratch(t *testing.T) {
	rec := &recordingExecer{}
	setTo := 0
	err := apply(context.Background(), rec, 0, func(v int) error {
		setTo = v
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if want := len(tables) + len(functions) + len(triggers); len(rec.stmts) != want {
		t.Fatalf("expected %d statements, got %d", want, len(rec.stmts))
	}
	if setTo != LatestVersion {
		t.Fatalf("expected version set to %d, got %d", LatestVersion, setTo)
	}
}

type recordingExecer struct {
	stmts []string
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.stmts = append(r.stmts, query)
	return nil, nil
}

func TestCreateExecutesEveryStatementInOrder(t *testing.T) {
	rec := &recordingExecer{}
	if err := create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	want := len(tables) + len(functions) + len(triggers)
	if len(rec.stmts) != want {
		t.Fatalf("expected %d statements, got %d", want, len(rec.stmts))
	}
	// Tables first, functions next, triggers last.
	if rec.stmts[0] != tables[0] {
		t.Fatal("expected tables first")
	}
	if rec.stmts[len(tables)] != functions[0] {
		t.Fatal("expected functions after tables")
	}
	if rec.stmts[len(rec.stmts)-1] != triggers[len(triggers)-1] {
		t.Fatal("expected triggers last")
	}
}

func TestCreateStopsOnFailure(t *testing.T) {
	failing := &failAfterExecer{failAt: 2}
	err := create(context.Background(), failing)
	if err == nil {
		t.Fatal("expected error")
	}
	if failing.calls != 3 {
		t.Fatalf("expected create to stop at the failing statement, made %d calls", failing.calls)
	}
}

type failAfterExecer struct {
	failAt int
	calls  int
}

func (f *failAfterExecer) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	f.calls++
	if f.calls > f.failAt {
		return nil, errors.New("boom")
	}
	return nil, nil
}
