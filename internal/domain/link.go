package domain

import (
	"time"
)

type Link struct {
	ID          int64      `db:"id" json:"id"`
	Code        string     `db:"code" json:"code"`
	URL         string     `db:"url" json:"url"`
	Clicks      int64      `db:"clicks" json:"clicks"`
	LastClicked *time.Time `db:"last_clicked_at" json:"lastClicked"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewLink builds a link that has never been visited.
func NewLink(code, url string, now time.Time) *Link {
	now = now.UTC()
	return &Link{
		Code:      code,
		URL:       url,
		Clicks:    0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordClick counts one visit at the given time. LastClicked never moves backwards.
func (l *Link) RecordClick(at time.Time) {
	l.Clicks++
	at = at.UTC()
	if l.LastClicked == nil || at.After(*l.LastClicked) {
		l.LastClicked = &at
	}
	l.UpdatedAt = at
}

// Clone returns a copy that shares no pointers with l.
func (l *Link) Clone() *Link {
	c := *l
	if l.LastClicked != nil {
		t := *l.LastClicked
		c.LastClicked = &t
	}
	return &c
}
