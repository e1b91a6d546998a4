// Package agedist buckets ages into four fixed bands and reports each band's
// share of the total.
package agedist

import (
	"fmt"
	"math"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/transformer/builtin"
)

// Band labels, in reporting order.
const (
	BandUnder20 = "<20"
	Band20To40  = "20-40"
	Band40To60  = "40-60"
	BandOver60  = ">60"
)

// Bands lists every band label in reporting order.
var Bands = []string{BandUnder20, Band20To40, Band40To60, BandOver60}

// Entry is one band's share, formatted with exactly two decimals.
type Entry struct {
	Group      string `json:"group"`
	Percentage string `json:"percentage"`
}

// Distribution always holds one entry per band, in Bands order.
type Distribution []Entry

// BandFor returns the band an age falls into. The lower bound of each band is
// inclusive, so 20, 40 and 60 open the next band.
func BandFor(age int) string {
	switch {
	case age < 20:
		return BandUnder20
	case age < 40:
		return Band20To40
	case age < 60:
		return Band40To60
	default:
		return BandOver60
	}
}

// Compute buckets ages and returns the percentage of each band. Values that
// do not coerce to an integer count as 0. Empty input yields "0.00" for every
// band.
func Compute(ages []any) Distribution {
	ints := make([]int, len(ages))
	for i, a := range ages {
		n, _ := builtin.LeadingInt(a)
		ints[i] = n
	}
	return FromInts(ints)
}

// FromInts is Compute over already-typed ages.
func FromInts(ages []int) Distribution {
	counts := make(map[string]int, len(Bands))
	for _, a := range ages {
		counts[BandFor(a)]++
	}
	total := len(ages)
	out := make(Distribution, len(Bands))
	for i, b := range Bands {
		out[i] = Entry{Group: b, Percentage: percent(counts[b], total)}
	}
	return out
}

// FromUsers computes the distribution of the given batch.
func FromUsers(users []domain.User) Distribution {
	ages := make([]int, len(users))
	for i, u := range users {
		ages[i] = u.Age
	}
	return FromInts(ages)
}

// FromUserAges computes the distribution of stored rows.
func FromUserAges(rows []domain.UserAge) Distribution {
	ages := make([]int, len(rows))
	for i, r := range rows {
		ages[i] = r.Age
	}
	return FromInts(ages)
}

// percent formats count/total*100 rounded half away from zero.
func percent(count, total int) string {
	if total == 0 {
		return "0.00"
	}
	v := math.Round(float64(count)*10000/float64(total)) / 100
	return fmt.Sprintf("%.2f", v)
}

// Get returns the percentage for band, or "" when the band is unknown.
func (d Distribution) Get(band string) string {
	for _, e := range d {
		if e.Group == band {
			return e.Percentage
		}
	}
	return ""
}

// String renders the distribution as a compact "<20=33.33 20-40=0.00 ..."
// line for logs.
func (d Distribution) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = e.Group + "=" + e.Percentage
	}
	return strings.Join(parts, " ")
}
