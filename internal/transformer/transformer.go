// Package transformer normalizes raw nested records into domain users.
package transformer

import (
	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/internal/transformer/builtin"
	"github.com/Saujanya0910/csv-to-json/pkg/records"
)

// Top-level fields consumed by the normalizer. Everything else lands in
// AdditionalInfo.
const (
	fieldName    = "name"
	fieldAge     = "age"
	fieldAddress = "address"
)

// Normalize maps one raw record onto the canonical user shape. It is total
// over any input and never mutates raw.
//
// A missing first or last name renders as "undefined" in the joined name.
// Age is the leading integer of the source value, 0 when it cannot be parsed
// or is negative. Address fields default to "".
func Normalize(raw records.Record) domain.User {
	return domain.User{
		Name:           fullName(raw),
		Age:            age(raw),
		Address:        address(raw),
		AdditionalInfo: additionalInfo(raw),
	}
}

// NormalizeAll normalizes each record, preserving order.
func NormalizeAll(raw []records.Record) []domain.User {
	out := make([]domain.User, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}

func lookup(raw records.Record, path ...string) any {
	if v, ok := raw.Get(path...); ok {
		return v
	}
	return records.Undefined
}

func fullName(raw records.Record) string {
	first := builtin.Stringify(lookup(raw, fieldName, "firstName"))
	last := builtin.Stringify(lookup(raw, fieldName, "lastName"))
	return first + " " + last
}

func age(raw records.Record) int {
	n, ok := builtin.LeadingInt(lookup(raw, fieldAge))
	if !ok || n < 0 {
		return 0
	}
	return n
}

func address(raw records.Record) domain.Address {
	field := func(name string) string {
		return builtin.StringOrEmpty(lookup(raw, fieldAddress, name))
	}
	return domain.Address{
		Line1: field("line1"),
		Line2: field("line2"),
		City:  field("city"),
		State: field("state"),
	}
}

func additionalInfo(raw records.Record) records.Record {
	rest := make(records.Record, len(raw))
	for k, v := range raw {
		switch k {
		case fieldName, fieldAge, fieldAddress:
			continue
		}
		rest[k] = v
	}
	return rest.Clone()
}
