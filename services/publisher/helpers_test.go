package publisher

import (
	"sjsage522/akiyawatch/internal/change"
	"sjsage522/akiyawatch/internal/crawler"
)

func testListing() crawler.Listing {
	return crawler.Listing{
		ID:    "niimi_NI-001",
		Title: "登録番号NI-001（上市）",
		Price: 2800000,
		URL:   "https://example.com/detail/NI-001",
	}
}

func testTransition() change.Transition {
	return change.Transition{Kind: change.PriceDecreased, OldPrice: 3000000, NewPrice: 2800000, Diff: 200000}
}
