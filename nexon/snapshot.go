package nexon

import (
	"context"
	"errors"
	"time"

	"maple-exp-bot/exp"
	"maple-exp-bot/history"
)

// Snapshot converts the payload into a snapshot dated date.
func (c *CharacterBasic) Snapshot(date time.Time) (exp.Snapshot, error) {
	rate, err := c.ExpRate()
	if err != nil {
		return exp.Snapshot{}, err
	}
	snap := exp.Snapshot{
		Date:    date,
		Level:   c.CharacterLevel,
		ExpRate: rate,
	}
	if c.CharacterExp != nil {
		snap.Exp = *c.CharacterExp
	}
	return snap, nil
}

// SnapshotFetcher serves history requests from the character/basic endpoint.
type SnapshotFetcher struct {
	client *Client
}

// NewSnapshotFetcher wraps a client as a history.Fetcher.
func NewSnapshotFetcher(client *Client) *SnapshotFetcher {
	return &SnapshotFetcher{client: client}
}

// FetchSnapshot returns history.ErrNoData for days the API has no record of.
func (f *SnapshotFetcher) FetchSnapshot(ctx context.Context, ocid string, req history.Request) (exp.Snapshot, error) {
	var date time.Time
	if !req.Latest {
		date = req.Date
	}

	basic, err := f.client.GetCharacterBasic(ctx, ocid, date)
	if errors.Is(err, ErrNotFound) {
		return exp.Snapshot{}, history.ErrNoData
	}
	if err != nil {
		return exp.Snapshot{}, err
	}
	return basic.Snapshot(req.Date)
}
