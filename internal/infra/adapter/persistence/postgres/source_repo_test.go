package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"newsbot/internal/domain/entity"
	"newsbot/internal/infra/adapter/persistence/postgres"
)

func sourceRow(src *entity.Source) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "type", "url", "category", "credibility_tier", "enabled", "config", "last_crawled_at", "created_at",
	}).AddRow(
		src.ID, src.Name, string(src.Type), src.URL, src.Category, src.CredibilityTier,
		src.Enabled, nil, src.LastCrawledAt, src.CreatedAt,
	)
}

func TestSourceRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.Source{
		ID: 1, Name: "Hacker News", Type: entity.SourceTypeHN, URL: "https://news.ycombinator.com",
		CredibilityTier: 4, Enabled: true, CreatedAt: time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, type, url, category, credibility_tier, enabled, config, last_crawled_at, created_at FROM sources WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sourceRow(want))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got.Name != want.Name || got.Type != want.Type {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSourceRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT id`).
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	repo := postgres.NewSourceRepo(db)
	got, err := repo.Get(context.Background(), 999)
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if got != nil {
		t.Fatalf("want nil source, got %v", got)
	}
}

func TestSourceRepo_List(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM sources`).
		WillReturnRows(sourceRow(&entity.Source{
			ID: 1, Name: "Reddit r/golang", Type: entity.SourceTypeReddit, CredibilityTier: 3, Enabled: true,
		}))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.List(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("List err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSourceRepo_ListActive(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{
		"id", "name", "type", "url", "category", "credibility_tier", "enabled", "config", "last_crawled_at", "created_at",
	}).
		AddRow(1, "Feed A", "feed", "https://a.example/feed", "tech", 3, true, nil, nil, time.Now()).
		AddRow(2, "Feed B", "feed", "https://b.example/feed", "tech", 4, true, nil, nil, time.Now())

	mock.ExpectQuery(`FROM sources WHERE enabled = TRUE`).WillReturnRows(rows)

	repo := postgres.NewSourceRepo(db)
	got, err := repo.ListActive(context.Background())
	if err != nil || len(got) != 2 {
		t.Fatalf("ListActive err=%v len=%d", err, len(got))
	}
}

func TestSourceRepo_ListActiveByType(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{
		"id", "name", "type", "url", "category", "credibility_tier", "enabled", "config", "last_crawled_at", "created_at",
	}).AddRow(1, "HN Top", "hn", "", "tech", 4, true, nil, nil, time.Now())

	mock.ExpectQuery(`FROM sources WHERE enabled = TRUE AND type = \$1`).
		WithArgs("hn").
		WillReturnRows(rows)

	repo := postgres.NewSourceRepo(db)
	got, err := repo.ListActiveByType(context.Background(), entity.SourceTypeHN)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListActiveByType err=%v len=%d", err, len(got))
	}
}

func TestSourceRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sources`)).
		WithArgs("Hacker News", "hn", "", "tech", 4, true, []byte("null")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))

	repo := postgres.NewSourceRepo(db)
	src := &entity.Source{Name: "Hacker News", Type: entity.SourceTypeHN, Category: "tech", CredibilityTier: 4, Enabled: true}
	if err := repo.Create(context.Background(), src); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if src.ID != 1 {
		t.Fatalf("want id 1, got %d", src.ID)
	}
}

func TestSourceRepo_Update_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE sources`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewSourceRepo(db)
	err := repo.Update(context.Background(), &entity.Source{
		ID: 999, Name: "X", Type: entity.SourceTypeFeed, URL: "https://x.example/feed", CredibilityTier: 3,
	})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSourceRepo_Delete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`DELETE FROM sources`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewSourceRepo(db)
	if err := repo.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
}

func TestSourceRepo_TouchCrawledAt(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectExec(`UPDATE sources SET last_crawled_at`).
		WithArgs(now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewSourceRepo(db)
	if err := repo.TouchCrawledAt(context.Background(), 1, now); err != nil {
		t.Fatalf("TouchCrawledAt err=%v", err)
	}
}
