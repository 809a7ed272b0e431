package notifier

import (
	"sjsage522/akiyawatch/internal/change"
	"sjsage522/akiyawatch/internal/crawler"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var yen = message.NewPrinter(language.Japanese)

// FormatMessage renders the push text for a transition. Unchanged listings
// produce no message.
func FormatMessage(l crawler.Listing, t change.Transition) (string, bool) {
	switch t.Kind {
	case change.New:
		return yen.Sprintf("🆕 【新着物件！】\n%s\n価格: %d円\n%s", l.Title, l.Price, l.URL), true
	case change.PriceDecreased:
		return yen.Sprintf("🔥 【大幅値下げ】\n%s\n%d円 → %d円 (▲%d円)\n%s",
			l.Title, t.OldPrice, t.NewPrice, t.Diff, l.URL), true
	case change.PriceChanged:
		return yen.Sprintf("✨ 【価格変更】\n%s\n%d円 → %d円", l.Title, t.OldPrice, t.NewPrice), true
	default:
		return "", false
	}
}
