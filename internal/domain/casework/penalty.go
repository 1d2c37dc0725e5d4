package casework

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// InvalidPointsTier is the fine tier label for a negative points total
const InvalidPointsTier = "N/A (Invalid Points)"

type fineTier struct {
	maxPoints int
	kina      int64
}

// fineTiers is ordered by maxPoints; totals above the last bound use topTierKina
var fineTiers = []fineTier{
	{maxPoints: 20, kina: 100},
	{maxPoints: 40, kina: 200},
	{maxPoints: 100, kina: 500},
}

const topTierKina = 1000

var kinaPrinter = message.NewPrinter(language.English)

// InfringementItem is one offence on an infringement notice
type InfringementItem struct {
	ItemID      string `json:"itemId"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Selected    bool   `json:"selected"`
	Notes       string `json:"notes,omitempty"`
}

// TotalPoints sums the points of selected items
func TotalPoints(items []InfringementItem) int {
	total := 0
	for _, item := range items {
		if item.Selected {
			total += item.Points
		}
	}
	return total
}

// FineAmount returns the fine in kina for a points total. ok is false for
// negative totals, which have no tier.
func FineAmount(points int) (amount decimal.Decimal, ok bool) {
	if points < 0 {
		return decimal.Zero, false
	}
	for _, t := range fineTiers {
		if points <= t.maxPoints {
			return decimal.NewFromInt(t.kina), true
		}
	}
	return decimal.NewFromInt(topTierKina), true
}

// FineTier renders the tier label for a points total, e.g. "K500" or "K1,000"
func FineTier(points int) string {
	amount, ok := FineAmount(points)
	if !ok {
		return InvalidPointsTier
	}
	return kinaPrinter.Sprintf("K%d", amount.IntPart())
}
