package ics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// FeedSource serves holidays from ICS feeds, one or more per country.
type FeedSource struct {
	fetcher *Fetcher
	feeds   []Feed
}

// NewFeedSource creates a FeedSource over feeds.
func NewFeedSource(fetcher *Fetcher, feeds []Feed) *FeedSource {
	return &FeedSource{fetcher: fetcher, feeds: feeds}
}

// Name identifies the source in logs.
func (s *FeedSource) Name() string { return "ics" }

// Holidays returns the holidays every feed of country reports for year.
// A country without feeds has no holidays here. It fails only when every
// matching feed failed.
func (s *FeedSource) Holidays(ctx context.Context, country string, year int) ([]model.Holiday, error) {
	lists := make([][]model.Holiday, 0)
	var errs []error
	matched := 0

	for _, feed := range s.feeds {
		if !strings.EqualFold(feed.Country, country) {
			continue
		}
		matched++

		hs, err := s.feedHolidays(ctx, feed, country, year)
		if err != nil {
			appLog.Error("ics feed failed", err, "id", feed.ID, "url", redactURL(feed.URL))
			errs = append(errs, fmt.Errorf("feed %s: %w", feed.ID, err))
			continue
		}
		lists = append(lists, hs)
	}

	if matched > 0 && len(errs) == matched {
		return nil, errors.Join(errs...)
	}
	return model.MergeHolidays(lists...), nil
}

func (s *FeedSource) feedHolidays(ctx context.Context, feed Feed, country string, year int) ([]model.Holiday, error) {
	res, err := s.fetcher.FetchOne(ctx, feed)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(feed, res.Body)
	if err != nil {
		return nil, err
	}

	occs := ExpandYear(entries, year)
	out := make([]model.Holiday, 0, len(occs))
	for _, occ := range occs {
		out = append(out, model.Holiday{
			Country: strings.ToUpper(country),
			Date:    occ.Date,
			Name:    occ.Summary,
			Source:  feed.ID,
		})
	}
	return out, nil
}
