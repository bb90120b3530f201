package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"

	"gamedex/internal/domain"
	"gamedex/internal/testutil"
)

type SQLiteStoreSuite struct {
	suite.Suite
	ctx  context.Context
	path string
	db   *sqlx.DB
	now  time.Time
}

func (s *SQLiteStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "gamedex.db")
	s.now = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)

	db, err := Open(s.ctx, Config{Driver: DriverSQLite, DSN: s.path})
	s.Require().NoError(err)
	s.db = db
}

func (s *SQLiteStoreSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func (s *SQLiteStoreSuite) favorite(id, slug, name string, offset time.Duration) *domain.FavoriteRecord {
	return &domain.FavoriteRecord{
		ID:              id,
		SourceGameID:    testutil.Ptr(int64(len(id) * 100)),
		Slug:            slug,
		Name:            name,
		Released:        testutil.Ptr("2001-11-15"),
		BackgroundImage: testutil.Ptr("https://media.rawg.io/media/games/" + slug + ".jpg"),
		Rating:          4.4,
		ReviewsCount:    1200,
		Metacritic:      testutil.Ptr(97),
		Platforms:       []domain.PlatformRef{{ID: 1, Name: "Xbox One", Slug: "xbox-one"}},
		CreatedAt:       s.now.Add(offset),
	}
}

func (s *SQLiteStoreSuite) TestFavoriteStore_SaveAndGetAll() {
	store := NewFavoriteStore(s.db)

	halo := s.favorite("fav-1", "halo", "Halo", 0)
	s.Require().NoError(store.Save(s.ctx, halo))

	all, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)

	got := all[0]
	s.Equal("fav-1", got.ID)
	s.Equal("halo", got.Slug)
	s.Equal("Halo", got.Name)
	s.Equal(*halo.SourceGameID, *got.SourceGameID)
	s.Equal("2001-11-15", *got.Released)
	s.Equal(97, *got.Metacritic)
	s.InDelta(4.4, got.Rating, 0.0001)
	s.Equal(1200, got.ReviewsCount)
	s.Equal(halo.Platforms, got.Platforms)
	s.True(halo.CreatedAt.Equal(got.CreatedAt))
}

func (s *SQLiteStoreSuite) TestFavoriteStore_NullableFields() {
	store := NewFavoriteStore(s.db)

	legacy := &domain.FavoriteRecord{ID: "legacy", Slug: "doom", Name: "DOOM", CreatedAt: s.now}
	s.Require().NoError(store.Save(s.ctx, legacy))

	got, err := store.GetByID(s.ctx, "legacy")
	s.Require().NoError(err)
	s.Nil(got.SourceGameID)
	s.Nil(got.Released)
	s.Nil(got.BackgroundImage)
	s.Nil(got.Metacritic)
	s.Empty(got.Platforms)
}

func (s *SQLiteStoreSuite) TestFavoriteStore_InsertionOrder() {
	store := NewFavoriteStore(s.db)

	s.Require().NoError(store.Save(s.ctx, s.favorite("c", "third", "Third", 2*time.Second)))
	s.Require().NoError(store.Save(s.ctx, s.favorite("a", "first", "First", 0)))
	s.Require().NoError(store.Save(s.ctx, s.favorite("b", "second", "Second", time.Second)))

	all, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"First", "Second", "Third"}, []string{all[0].Name, all[1].Name, all[2].Name})
}

func (s *SQLiteStoreSuite) TestFavoriteStore_SaveDoesNotDeduplicateContent() {
	store := NewFavoriteStore(s.db)

	s.Require().NoError(store.Save(s.ctx, s.favorite("x1", "halo", "Halo", 0)))
	s.Require().NoError(store.Save(s.ctx, s.favorite("x2", "halo", "Halo", time.Second)))

	all, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *SQLiteStoreSuite) TestFavoriteStore_DuplicateIDFails() {
	store := NewFavoriteStore(s.db)

	s.Require().NoError(store.Save(s.ctx, s.favorite("same", "halo", "Halo", 0)))
	err := store.Save(s.ctx, s.favorite("same", "halo-2", "Halo 2", time.Second))
	s.Error(err)
	s.Contains(err.Error(), "insert favorite")
}

func (s *SQLiteStoreSuite) TestFavoriteStore_Delete() {
	store := NewFavoriteStore(s.db)

	s.Require().NoError(store.Save(s.ctx, s.favorite("fav-1", "halo", "Halo", 0)))
	s.Require().NoError(store.Delete(s.ctx, "fav-1"))

	all, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	s.NoError(store.Delete(s.ctx, "does-not-exist"))
}

func (s *SQLiteStoreSuite) TestFavoriteStore_GetByIDNotFound() {
	store := NewFavoriteStore(s.db)

	_, err := store.GetByID(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *SQLiteStoreSuite) TestFavoriteStore_DecodeFailure() {
	store := NewFavoriteStore(s.db)

	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO favorites (id, slug, name, platforms, created_at)
		VALUES ('broken', 'x', 'X', '{not json', 1)`)
	s.Require().NoError(err)

	_, err = store.GetAll(s.ctx)
	s.ErrorIs(err, ErrDecode)
}

func (s *SQLiteStoreSuite) TestFavoriteStore_SaveRequiresID() {
	store := NewFavoriteStore(s.db)
	s.Error(store.Save(s.ctx, &domain.FavoriteRecord{Name: "No ID"}))
	s.Error(store.Save(s.ctx, nil))
}

func (s *SQLiteStoreSuite) TestFavoriteStore_SurvivesReopen() {
	store := NewFavoriteStore(s.db)
	s.Require().NoError(store.Save(s.ctx, s.favorite("fav-1", "halo", "Halo", 0)))
	s.Require().NoError(s.db.Close())

	db, err := Open(s.ctx, Config{Driver: DriverSQLite, DSN: s.path})
	s.Require().NoError(err)
	s.db = db

	all, err := NewFavoriteStore(db).GetAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *SQLiteStoreSuite) TestSavedSearchStore_CRUD() {
	store := NewSavedSearchStore(s.db)

	s.Require().NoError(store.Save(s.ctx, &domain.SavedSearchRecord{ID: "s1", Query: "Zelda", CreatedAt: s.now}))
	s.Require().NoError(store.Save(s.ctx, &domain.SavedSearchRecord{ID: "s2", Query: "Metroid", CreatedAt: s.now.Add(time.Second)}))

	all, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("Zelda", all[0].Query)
	s.Equal("Metroid", all[1].Query)

	s.Require().NoError(store.Delete(s.ctx, "s1"))
	s.Require().NoError(store.Delete(s.ctx, "s1"))

	all, err = store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("s2", all[0].ID)
}

func (s *SQLiteStoreSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewFavoriteStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := store.Save(ctx, s.favorite("tx-1", "halo", "Halo", 0)); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Error(err)

	all, err := store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *SQLiteStoreSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewFavoriteStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		existing, err := store.GetAll(ctx)
		if err != nil {
			return err
		}
		s.Empty(existing)
		return store.Save(ctx, s.favorite("tx-1", "halo", "Halo", 0))
	})
	s.Require().NoError(err)

	got, err := store.GetByID(s.ctx, "tx-1")
	s.Require().NoError(err)
	s.Equal("Halo", got.Name)
}

func TestOpen_FailsOnUnusablePath(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(dir, "missing", "nested", "gamedex.db"),
	})
	if err == nil {
		t.Fatal("expected open to fail for a path in a missing directory")
	}
}
