package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gamedex/internal/domain"
	"gamedex/internal/fetch"
	"gamedex/internal/scheduler"
	"gamedex/internal/service"
	"gamedex/internal/storage/redis"
)

var listingContexts = map[string]string{
	"trending": service.ContextTrending,
	"last30":   service.ContextLastThirtyDays,
	"best":     service.ContextBestOfYear,
}

func (a *app) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "listing":
		return a.runListing(ctx, rest)
	case "search":
		return a.runSearch(ctx, rest)
	case "favorites":
		return a.runFavorites(ctx, rest)
	case "searches":
		return a.runSearches(ctx, rest)
	case "profile":
		return a.runProfile(ctx, rest)
	case "platforms":
		return a.runPlatforms(ctx)
	case "sync":
		return a.runSync(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// parseArgs parses fs allowing flags before and after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func listingContext(name string, platformID int64) (string, error) {
	if name == "platform" {
		if platformID <= 0 {
			return "", errors.New("listing platform requires -id")
		}
		return service.PlatformContext(platformID), nil
	}
	if ctxName, ok := listingContexts[name]; ok {
		return ctxName, nil
	}
	return "", fmt.Errorf("unknown listing %q", name)
}

func (a *app) runListing(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listing", flag.ContinueOnError)
	platformID := fs.Int64("id", 0, "platform id for the platform listing")
	pages := fs.Int("pages", 1, "number of pages to load")
	ordering := fs.String("ordering", "", "override the listing ordering")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("listing requires exactly one name")
	}

	name, err := listingContext(positional[0], *platformID)
	if err != nil {
		return err
	}

	var state domain.ListingState
	if *ordering != "" {
		state, err = a.listings.SwitchOrdering(ctx, name, *ordering)
	} else {
		state, err = a.listings.RefreshPreset(ctx, name)
	}
	if err != nil {
		return err
	}

	for i := 1; i < *pages && state.Cursor.CanLoadMore; i++ {
		if state, err = a.listings.LoadMore(ctx, name); err != nil {
			return err
		}
	}

	return printGames(a.out, state)
}

func (a *app) runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	pages := fs.Int("pages", 1, "number of pages to load")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	state, err := a.searches.Search(ctx, strings.Join(positional, " "))
	if err != nil {
		return err
	}

	for i := 1; i < *pages && state.Cursor.CanLoadMore; i++ {
		if state, err = a.searches.LoadMore(ctx); err != nil {
			return err
		}
	}

	return printGames(a.out, state)
}

func (a *app) runFavorites(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("favorites requires list, add or remove")
	}

	switch args[0] {
	case "list":
		records, err := a.favorites.Reload(ctx)
		if err != nil {
			return err
		}
		return printFavorites(a.out, records)

	case "add":
		if len(args) != 2 {
			return errors.New("favorites add requires a game slug")
		}
		detail, err := a.source.GetGame(ctx, args[1])
		if err != nil {
			return err
		}
		rec, err := a.favorites.Add(ctx, detail.GameSummary)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "added %s (%s)\n", rec.Name, rec.ID)
		return nil

	case "remove":
		if len(args) != 2 {
			return errors.New("favorites remove requires an id or slug")
		}
		records, err := a.favorites.Reload(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.ID == args[1] || rec.Slug == args[1] {
				if err := a.favorites.Remove(ctx, rec); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "removed %s\n", rec.Name)
				return nil
			}
		}
		return fmt.Errorf("no favorite matches %q", args[1])
	}

	return fmt.Errorf("unknown favorites action %q", args[0])
}

func (a *app) runSearches(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("searches requires list, save or delete")
	}

	switch args[0] {
	case "list":
		records, err := a.searches.SavedSearches(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\n", rec.ID, rec.Query, rec.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()

	case "save":
		rec, err := a.searches.SaveSearch(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "saved %q (%s)\n", rec.Query, rec.ID)
		return nil

	case "delete":
		if len(args) != 2 {
			return errors.New("searches delete requires an id")
		}
		return a.searches.DeleteSavedSearch(ctx, args[1])
	}

	return fmt.Errorf("unknown searches action %q", args[0])
}

func (a *app) runProfile(ctx context.Context, args []string) error {
	if a.profiles == nil {
		return errors.New("profiles need redis: set redis.addr")
	}
	if len(args) == 0 {
		return errors.New("profile requires get or set")
	}

	switch args[0] {
	case "get":
		profile, err := a.profiles.Get(ctx, a.cfg.UserID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)

	case "set":
		return a.setProfile(ctx, args[1:])
	}

	return fmt.Errorf("unknown profile action %q", args[0])
}

func (a *app) setProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile set", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "display name")
	photo := fs.String("photo", "", "path of a photo to upload")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	profile, err := a.profiles.Get(ctx, a.cfg.UserID)
	exists := err == nil
	if errors.Is(err, redis.ErrProfileNotFound) {
		profile = &domain.UserProfile{UserID: a.cfg.UserID}
	} else if err != nil {
		return err
	}

	if *email != "" {
		profile.Email = *email
	}
	if *name != "" {
		profile.DisplayName = *name
	}
	if *photo != "" {
		photoURL, err := a.uploadPhoto(ctx, *photo)
		if err != nil {
			return err
		}
		profile.PhotoURL = photoURL
	}

	if exists {
		return a.profiles.Update(ctx, profile)
	}
	return a.profiles.Create(ctx, profile)
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (a *app) uploadPhoto(ctx context.Context, path string) (string, error) {
	if a.cfg.Profile.UploadURL == "" {
		return "", errors.New("photo upload needs profile.upload_url")
	}

	body, err := a.fetcher.UploadFile(ctx, a.cfg.Profile.UploadURL, fetch.FileField{
		FieldName: "photo",
		Path:      path,
	}, map[string]string{"user_id": a.cfg.UserID})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.URL == "" {
		return "", fmt.Errorf("upload photo: %w", fetch.ErrInvalidData)
	}
	return resp.URL, nil
}

func (a *app) runPlatforms(ctx context.Context) error {
	platforms, err := a.source.ListPlatforms(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, p := range platforms {
		fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Name, p.Slug)
	}
	return w.Flush()
}

func (a *app) runSync(ctx context.Context) error {
	refresher := service.NewRefreshService(a.listings, a.assets, service.RefreshConfig{
		Contexts: a.cfg.Refresh.Contexts,
		Prefetch: a.cfg.Refresh.Prefetch,
	}, a.logger)

	sched := scheduler.NewScheduler(refresher, a.cfg.Refresh.Interval, a.cfg.Refresh.RunTimeout, a.logger)
	return sched.Start(ctx)
}

func printGames(w io.Writer, state domain.ListingState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range state.Games {
		rating := "-"
		if g.Rating != nil {
			rating = fmt.Sprintf("%.2f", *g.Rating)
		}
		released := "-"
		if g.Released != nil {
			released = *g.Released
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", g.ID, g.Name, released, rating)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	more := ""
	if state.Cursor.CanLoadMore {
		more = ", more available"
	}
	_, err := fmt.Fprintf(w, "%d games (page %d%s)\n", len(state.Games), state.Cursor.Page, more)
	return err
}

func printFavorites(w io.Writer, records []domain.FavoriteRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", rec.ID, rec.Slug, rec.Name, rec.Rating)
	}
	return tw.Flush()
}
