package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gamedex/internal/domain"
	"gamedex/internal/service/mocks"
	"gamedex/internal/testutil"
)

type FavoritesRepositoryTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	store     *mocks.MockFavoriteStore
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher
	ids       *mocks.MockIDGenerator
	clock     *mocks.MockClock

	repo   *FavoritesRepository
	logger *slog.Logger
	now    time.Time
}

func (s *FavoritesRepositoryTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.store = mocks.NewMockFavoriteStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.ids = mocks.NewMockIDGenerator(s.ctrl)
	s.clock = mocks.NewMockClock(s.ctrl)

	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.clock.EXPECT().Now().Return(s.now).AnyTimes()

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.repo = NewFavoritesRepository(s.store, s.txManager, s.publisher, s.ids, s.clock, s.logger)
}

func (s *FavoritesRepositoryTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestFavoritesRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(FavoritesRepositoryTestSuite))
}

func (s *FavoritesRepositoryTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func halo() domain.GameSummary {
	return domain.GameSummary{
		ID:              2058,
		Slug:            "halo",
		Name:            "Halo",
		Released:        testutil.Ptr("2001-11-15"),
		BackgroundImage: testutil.Ptr("https://media.rawg.io/media/games/halo.jpg"),
		Rating:          testutil.Ptr(4.4),
		ReviewsCount:    1200,
		Metacritic:      testutil.Ptr(97),
		Platforms:       []domain.PlatformRef{{ID: 1, Name: "Xbox", Slug: "xbox"}},
	}
}

func (s *FavoritesRepositoryTestSuite) TestAdd_SavesSnapshotPublishesAndReloads() {
	ctx := context.Background()
	game := halo()

	var saved domain.FavoriteRecord
	s.ids.EXPECT().NewUUID().Return("fav-1")
	s.expectTransaction()
	gomock.InOrder(
		s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil),
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, rec *domain.FavoriteRecord) error {
				saved = *rec
				return nil
			}),
		s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
			func(ctx context.Context, event *domain.ChangeEvent) error {
				s.Equal(domain.ActionFavoriteAdded, event.Action)
				s.Equal("fav-1", event.Favorite.ID)
				s.Equal(s.now, event.Timestamp)
				return nil
			}),
		s.store.EXPECT().GetAll(ctx).DoAndReturn(
			func(ctx context.Context) ([]domain.FavoriteRecord, error) {
				return []domain.FavoriteRecord{saved}, nil
			}),
	)

	rec, err := s.repo.Add(ctx, game)
	s.Require().NoError(err)

	s.Equal("fav-1", rec.ID)
	s.Equal(int64(2058), *rec.SourceGameID)
	s.Equal("halo", rec.Slug)
	s.Equal("Halo", rec.Name)
	s.Equal(4.4, rec.Rating)
	s.Equal(97, *rec.Metacritic)
	s.Equal(s.now, rec.CreatedAt)
	s.Equal(*rec, saved)

	favorites := s.repo.Favorites()
	s.Require().Len(favorites, 1)
	s.Equal("fav-1", favorites[0].ID)
}

func (s *FavoritesRepositoryTestSuite) TestAdd_AlreadyFavoriteReturnsExisting() {
	ctx := context.Background()
	existing := domain.FavoriteRecord{ID: "fav-old", SourceGameID: testutil.Ptr(int64(2058)), Slug: "halo"}

	s.ids.EXPECT().NewUUID().Return("fav-new")
	s.expectTransaction()
	s.store.EXPECT().GetAll(gomock.Any()).Return([]domain.FavoriteRecord{existing}, nil)

	rec, err := s.repo.Add(ctx, halo())
	s.Require().NoError(err)
	s.Equal("fav-old", rec.ID)
}

func (s *FavoritesRepositoryTestSuite) TestAdd_SaveFailureLeavesCollectionUntouched() {
	ctx := context.Background()
	saveErr := errors.New("disk full")

	s.store.EXPECT().GetAll(ctx).Return([]domain.FavoriteRecord{{ID: "a", Slug: "portal"}}, nil)
	_, err := s.repo.Reload(ctx)
	s.Require().NoError(err)

	s.ids.EXPECT().NewUUID().Return("fav-1")
	s.expectTransaction()
	s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(saveErr)

	rec, err := s.repo.Add(ctx, halo())
	s.Require().Error(err)
	s.ErrorIs(err, saveErr)
	s.Nil(rec)

	favorites := s.repo.Favorites()
	s.Require().Len(favorites, 1)
	s.Equal("a", favorites[0].ID)
}

func (s *FavoritesRepositoryTestSuite) TestAdd_PublishFailureDoesNotFailAdd() {
	ctx := context.Background()

	s.ids.EXPECT().NewUUID().Return("fav-1")
	s.expectTransaction()
	s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil).Times(2)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("channel closed"))

	rec, err := s.repo.Add(ctx, halo())
	s.Require().NoError(err)
	s.Equal("fav-1", rec.ID)
}

func (s *FavoritesRepositoryTestSuite) TestAdd_WithoutPublisher() {
	ctx := context.Background()
	repo := NewFavoritesRepository(s.store, s.txManager, nil, s.ids, s.clock, s.logger)

	s.ids.EXPECT().NewUUID().Return("fav-1")
	s.expectTransaction()
	s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil).Times(2)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	_, err := repo.Add(ctx, halo())
	s.Require().NoError(err)
}

func (s *FavoritesRepositoryTestSuite) TestRemove_DeletesByRecordID() {
	ctx := context.Background()
	rec := domain.FavoriteRecord{ID: "fav-1", Slug: "halo"}

	gomock.InOrder(
		s.store.EXPECT().Delete(ctx, "fav-1").Return(nil),
		s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
			func(ctx context.Context, event *domain.ChangeEvent) error {
				s.Equal(domain.ActionFavoriteRemoved, event.Action)
				s.Equal("fav-1", event.Favorite.ID)
				return nil
			}),
		s.store.EXPECT().GetAll(ctx).Return([]domain.FavoriteRecord{}, nil),
	)

	s.Require().NoError(s.repo.Remove(ctx, rec))
	s.Empty(s.repo.Favorites())
}

func (s *FavoritesRepositoryTestSuite) TestRemove_RequiresID() {
	err := s.repo.Remove(context.Background(), domain.FavoriteRecord{Slug: "halo"})
	s.Error(err)
}

func (s *FavoritesRepositoryTestSuite) TestRemove_DeleteFailure() {
	ctx := context.Background()
	s.store.EXPECT().Delete(ctx, "fav-1").Return(errors.New("locked"))

	err := s.repo.Remove(ctx, domain.FavoriteRecord{ID: "fav-1"})
	s.Error(err)
}

func (s *FavoritesRepositoryTestSuite) TestIsFavorite_MatchesSourceIDThenSlug() {
	ctx := context.Background()
	records := []domain.FavoriteRecord{
		{ID: "a", SourceGameID: testutil.Ptr(int64(2058)), Slug: "renamed-slug"},
		{ID: "b", Slug: "portal-2"},
	}
	s.store.EXPECT().GetAll(ctx).Return(records, nil).Times(4)

	ok, err := s.repo.IsFavorite(ctx, halo())
	s.Require().NoError(err)
	s.True(ok, "source id match")

	ok, err = s.repo.IsFavorite(ctx, domain.GameSummary{ID: 4200, Slug: "portal-2"})
	s.Require().NoError(err)
	s.True(ok, "legacy slug match")

	ok, err = s.repo.IsFavorite(ctx, domain.GameSummary{ID: 1, Slug: "renamed-slug"})
	s.Require().NoError(err)
	s.False(ok, "slug ignored when source id is recorded")

	rec, err := s.repo.Find(ctx, domain.GameSummary{ID: 4200, Slug: "portal-2"})
	s.Require().NoError(err)
	s.Equal("b", rec.ID)
}

func (s *FavoritesRepositoryTestSuite) TestIsFavorite_StoreFailure() {
	ctx := context.Background()
	s.store.EXPECT().GetAll(ctx).Return(nil, errors.New("decode"))

	ok, err := s.repo.IsFavorite(ctx, halo())
	s.Error(err)
	s.False(ok)
}

func (s *FavoritesRepositoryTestSuite) TestReload_FailureDegradesToEmpty() {
	ctx := context.Background()

	s.store.EXPECT().GetAll(ctx).Return([]domain.FavoriteRecord{{ID: "a"}}, nil)
	s.store.EXPECT().GetAll(ctx).Return(nil, errors.New("no such table"))

	_, err := s.repo.Reload(ctx)
	s.Require().NoError(err)
	s.Len(s.repo.Favorites(), 1)

	records, err := s.repo.Reload(ctx)
	s.Require().Error(err)
	s.Empty(records)
	s.Empty(s.repo.Favorites())
	s.Equal("no such table", s.repo.ErrorMessage())
}

func (s *FavoritesRepositoryTestSuite) TestToggle() {
	ctx := context.Background()
	existing := domain.FavoriteRecord{ID: "fav-1", SourceGameID: testutil.Ptr(int64(2058)), Slug: "halo"}

	// not a favorite yet: add
	s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil).Times(3)
	s.ids.EXPECT().NewUUID().Return("fav-1")
	s.expectTransaction()
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	on, err := s.repo.Toggle(ctx, halo())
	s.Require().NoError(err)
	s.True(on)

	// now a favorite: remove
	s.store.EXPECT().GetAll(gomock.Any()).Return([]domain.FavoriteRecord{existing}, nil)
	s.store.EXPECT().Delete(gomock.Any(), "fav-1").Return(nil)
	s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil)

	on, err = s.repo.Toggle(ctx, halo())
	s.Require().NoError(err)
	s.False(on)
}

func (s *FavoritesRepositoryTestSuite) TestAddThenRemove_LateReloadDoesNotOverwriteNewer() {
	ctx := context.Background()
	repo := NewFavoritesRepository(s.store, s.txManager, nil, s.ids, s.clock, s.logger)
	stored := domain.FavoriteRecord{ID: "fav-1", SourceGameID: testutil.Ptr(int64(2058)), Slug: "halo"}
	entered := make(chan struct{})
	release := make(chan struct{})

	s.ids.EXPECT().NewUUID().Return("fav-1")
	s.expectTransaction()
	gomock.InOrder(
		s.store.EXPECT().GetAll(gomock.Any()).Return(nil, nil),
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
		// Add's reload reads the row, then stalls
		s.store.EXPECT().GetAll(gomock.Any()).DoAndReturn(
			func(ctx context.Context) ([]domain.FavoriteRecord, error) {
				close(entered)
				<-release
				return []domain.FavoriteRecord{stored}, nil
			}),
		s.store.EXPECT().Delete(gomock.Any(), "fav-1").Return(nil),
		s.store.EXPECT().GetAll(gomock.Any()).Return([]domain.FavoriteRecord{}, nil),
	)

	done := make(chan error)
	go func() {
		_, err := repo.Add(ctx, halo())
		done <- err
	}()
	<-entered

	s.Require().NoError(repo.Remove(ctx, stored))
	s.Empty(repo.Favorites())

	close(release)
	s.Require().NoError(<-done)

	s.Empty(repo.Favorites())
	s.Empty(repo.ErrorMessage())
}
