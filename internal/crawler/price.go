package crawler

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var priceTokenRegex = regexp.MustCompile(`[\d,.]+`)

// PriceUnit is the multiplier marker found in a price text
type PriceUnit int

const (
	// UnitNone means the number is already in yen
	UnitNone PriceUnit = iota
	// UnitMan is 万, x10,000
	UnitMan
	// UnitSen is 千, x1,000
	UnitSen
)

// Multiplier returns the scale factor of the unit
func (u PriceUnit) Multiplier() int64 {
	switch u {
	case UnitMan:
		return 10000
	case UnitSen:
		return 1000
	default:
		return 1
	}
}

// Price is the parsed form of a sale price text
type Price struct {
	Yen  int64
	Unit PriceUnit
	// Unrecognized is set when the text has unit-like residue besides 円
	// that was treated as plain yen.
	Unrecognized bool
}

// ParsePrice converts a sale price text such as "250万円" into whole yen.
// Text without a number yields zero. Only 万 and 千 scale the number; any
// other unit is taken as yen and flagged Unrecognized.
func ParsePrice(text string) (Price, error) {
	narrow := width.Narrow.String(text)

	token := priceTokenRegex.FindString(narrow)
	if token == "" {
		return Price{}, nil
	}

	number, ok := new(big.Rat).SetString(strings.ReplaceAll(token, ",", ""))
	if !ok {
		return Price{}, fmt.Errorf("invalid price number %q in %q", token, text)
	}

	var p Price
	switch {
	case strings.Contains(narrow, "万"):
		p.Unit = UnitMan
	case strings.Contains(narrow, "千"):
		p.Unit = UnitSen
	default:
		p.Unit = UnitNone
		rest := strings.Replace(narrow, token, "", 1)
		rest = strings.NewReplacer("円", "", " ", "").Replace(rest)
		p.Unrecognized = strings.TrimSpace(rest) != ""
	}

	scaled := number.Mul(number, new(big.Rat).SetInt64(p.Unit.Multiplier()))
	// Quo truncates toward zero
	yen := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	if !yen.IsInt64() {
		return Price{}, fmt.Errorf("price %q out of range", text)
	}
	p.Yen = yen.Int64()
	return p, nil
}
