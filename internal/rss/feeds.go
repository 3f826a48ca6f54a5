// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import "context"

// CreateFeed persists a new feed and, per spec §4.9's "Creation
// side-effects", immediately triggers one poll for it rather than waiting
// for the next eligibility tick — a force_poll whether or not the feed
// would otherwise be due.
func (s *Scheduler) CreateFeed(ctx context.Context, f Feed) (*Feed, error) {
	created, err := s.repo.CreateFeed(ctx, f)
	if err != nil {
		return nil, err
	}
	go s.pollIfClaimed(context.Background(), created)
	return created, nil
}
