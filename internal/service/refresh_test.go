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

type RefreshServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source *mocks.MockGameSource
	assets *mocks.MockAssetCache
	clock  *mocks.MockClock

	listings *ListingRepository
	logger   *slog.Logger
	now      time.Time
}

func (s *RefreshServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockGameSource(s.ctrl)
	s.assets = mocks.NewMockAssetCache(s.ctrl)
	s.clock = mocks.NewMockClock(s.ctrl)

	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.clock.EXPECT().Now().Return(s.now).AnyTimes()

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.listings = NewListingRepository(s.source, s.clock, s.logger)
}

func (s *RefreshServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRefreshServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RefreshServiceTestSuite))
}

func withImages(page *domain.GamePage) *domain.GamePage {
	for i := range page.Results {
		page.Results[i].BackgroundImage = testutil.Ptr("https://media.rawg.io/media/games/" + page.Results[i].Slug + ".jpg")
	}
	return page
}

func (s *RefreshServiceTestSuite) TestRefresh_RefreshesContextsAndPrefetches() {
	ctx := context.Background()
	svc := NewRefreshService(s.listings, s.assets, RefreshConfig{
		Contexts: []string{ContextTrending, ContextBestOfYear},
		Prefetch: 2,
	}, s.logger)

	s.source.EXPECT().ListGames(gomock.Any(), 1, TrendingParams()).Return(withImages(gamesPage("t", 5)), nil)
	s.source.EXPECT().ListGames(gomock.Any(), 1, BestOfYearParams(s.now)).Return(withImages(gamesPage("b", 3)), nil)

	s.assets.EXPECT().Get(gomock.Any(), "https://media.rawg.io/media/games/t-1.jpg").Return([]byte("img"), nil)
	s.assets.EXPECT().Get(gomock.Any(), "https://media.rawg.io/media/games/t-2.jpg").Return(nil, errors.New("404"))
	s.assets.EXPECT().Get(gomock.Any(), "https://media.rawg.io/media/games/b-1.jpg").Return([]byte("img"), nil)
	s.assets.EXPECT().Get(gomock.Any(), "https://media.rawg.io/media/games/b-2.jpg").Return([]byte("img"), nil)

	stats, err := svc.Refresh(ctx)
	s.Require().NoError(err)

	s.Equal(2, stats.Contexts)
	s.Equal(8, stats.Fetched)
	s.Equal(0, stats.Failed)
	s.Equal(3, stats.Prefetched)
	s.Equal(1, stats.Errors)
	s.Len(s.listings.State(ContextTrending).Games, 5)
}

func (s *RefreshServiceTestSuite) TestRefresh_PartialFailureIsNotAnError() {
	ctx := context.Background()
	svc := NewRefreshService(s.listings, nil, RefreshConfig{
		Contexts: []string{ContextTrending, ContextBestOfYear},
		Prefetch: 5,
	}, s.logger)

	s.source.EXPECT().ListGames(gomock.Any(), 1, TrendingParams()).Return(nil, errors.New("unexpected status 500"))
	s.source.EXPECT().ListGames(gomock.Any(), 1, BestOfYearParams(s.now)).Return(gamesPage("b", 3), nil)

	stats, err := svc.Refresh(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(3, stats.Fetched)
	s.Equal(0, stats.Prefetched)
}

func (s *RefreshServiceTestSuite) TestRefresh_AllContextsFailed() {
	ctx := context.Background()
	svc := NewRefreshService(s.listings, s.assets, RefreshConfig{Contexts: []string{ContextTrending}}, s.logger)

	s.source.EXPECT().ListGames(gomock.Any(), 1, gomock.Any()).Return(nil, errors.New("request failed"))

	stats, err := svc.Refresh(ctx)
	s.Require().Error(err)
	s.Equal(1, stats.Failed)
}

func (s *RefreshServiceTestSuite) TestRefresh_DefaultContexts() {
	svc := NewRefreshService(s.listings, nil, RefreshConfig{}, s.logger)
	s.Equal([]string{ContextTrending, ContextLastThirtyDays, ContextBestOfYear}, svc.config.Contexts)
}
