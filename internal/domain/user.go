package domain

import "github.com/Saujanya0910/csv-to-json/pkg/records"

// User is the canonical persisted shape of one CSV row.
type User struct {
	Name           string         `json:"name"`
	Age            int            `json:"age"`
	Address        Address        `json:"address"`
	AdditionalInfo records.Record `json:"additionalInfo"`
}

// Address always carries all four fields; "" stands in for unknown.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	City  string `json:"city"`
	State string `json:"state"`
}

// UserAge is the projection read back when recomputing the overall
// distribution.
type UserAge struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}
