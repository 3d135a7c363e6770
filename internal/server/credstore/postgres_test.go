package credstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mizphses/kips/internal/common"
)

func newPostgresStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return &PostgresStore{db: db}, mock, db
}

const (
	selectQ = `(?s)^SELECT\s+v\s+FROM\s+credentials\s+WHERE\s+mapping\s*=\s*\$1\s+AND\s+k\s*=\s*\$2\s*$`
	upsertQ = `(?s)^INSERT\s+INTO\s+credentials\s*\(mapping,\s*k,\s*v\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(mapping,\s*k\)\s*DO\s+UPDATE\s+SET\s+v\s*=\s*EXCLUDED\.v\s*$`
	deleteQ = `(?s)^DELETE\s+FROM\s+credentials\s+WHERE\s+mapping\s*=\s*\$1\s+AND\s+k\s*=\s*\$2\s*$`
)

func TestPostgresGet_Found(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"v"}).AddRow("hash1")
	mock.ExpectQuery(selectQ).
		WithArgs("users", "a@x.com").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), MappingUsers, "a@x.com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "hash1" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestPostgresGet_NotFound(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).
		WithArgs("users", "ghost@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), MappingUsers, "ghost@x.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestPostgresGet_DBError(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).
		WithArgs("users", "a@x.com").
		WillReturnError(errors.New("db down"))

	_, err := store.Get(context.Background(), MappingUsers, "a@x.com")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresPut_Upsert(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(upsertQ).
		WithArgs("keys", "a@x.com", "key1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Put(context.Background(), MappingKeys, "a@x.com", "key1"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresDelete(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).
		WithArgs("keys", "a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Delete(context.Background(), MappingKeys, "a@x.com"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresApply_CommitsAllOps(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(deleteQ).
		WithArgs("keys", "a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQ).
		WithArgs("keybymail", "oldkey").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertQ).
		WithArgs("keys", "a@x.com", "newkey").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertQ).
		WithArgs("keybymail", "newkey", "a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(),
		DeleteOp(MappingKeys, "a@x.com"),
		DeleteOp(MappingKeyByMail, "oldkey"),
		PutOp(MappingKeys, "a@x.com", "newkey"),
		PutOp(MappingKeyByMail, "newkey", "a@x.com"),
	)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresApply_RollsBackOnError(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(upsertQ).
		WithArgs("keys", "a@x.com", "key1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertQ).
		WithArgs("keybymail", "key1", "a@x.com").
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := store.Apply(context.Background(),
		PutOp(MappingKeys, "a@x.com", "key1"),
		PutOp(MappingKeyByMail, "key1", "a@x.com"),
	)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresApply_BeginError(t *testing.T) {
	store, mock, db := newPostgresStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	err := store.Apply(context.Background(), PutOp(MappingKeys, "a@x.com", "key1"))
	if err == nil || !regexp.MustCompile(`tx begin error: .*no conn`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped begin error, got %v", err)
	}
}
