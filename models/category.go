package models

import (
	"sort"
	"strings"
)

type BetCategory string

const (
	CategoryTop3    BetCategory = "top3"
	CategoryToad3   BetCategory = "toad3"
	CategoryTop2    BetCategory = "top2"
	CategoryBottom2 BetCategory = "bottom2"
	CategoryRun     BetCategory = "run"
)

var Categories = []BetCategory{CategoryTop3, CategoryToad3, CategoryTop2, CategoryBottom2, CategoryRun}

// Digits is the length of a number in the category.
func (c BetCategory) Digits() int {
	switch c {
	case CategoryTop3, CategoryToad3:
		return 3
	case CategoryTop2, CategoryBottom2:
		return 2
	case CategoryRun:
		return 1
	default:
		return 0
	}
}

func (c BetCategory) Valid() bool {
	return c.Digits() > 0
}

func ParseCategory(s string) (BetCategory, bool) {
	c := BetCategory(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// ValidNumber reports whether n is a digit string of the category's length.
func (c BetCategory) ValidNumber(n string) bool {
	if len(n) != c.Digits() {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Canonical returns the ledger form of a number. Any-order numbers share one
// entry, so their digits are sorted.
func (c BetCategory) Canonical(n string) string {
	if c != CategoryToad3 {
		return n
	}
	b := []byte(n)
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b)
}

// Matches reports whether number wins against the round result.
func (c BetCategory) Matches(number string, res Result) bool {
	switch c {
	case CategoryTop3:
		return number == res.Top3
	case CategoryToad3:
		target := res.Toad3
		if target == "" {
			target = res.Top3
		}
		return target != "" && c.Canonical(number) == c.Canonical(target)
	case CategoryTop2:
		return number == res.Top2
	case CategoryBottom2:
		return number == res.Bottom2
	case CategoryRun:
		return number == res.Run
	}
	return false
}
