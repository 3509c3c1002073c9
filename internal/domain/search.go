package domain

import "time"

type SearchHistoryEntry struct {
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searchedAt"`
}

type PopularTerm struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}
