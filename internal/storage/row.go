package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Saujanya0910/csv-to-json/internal/domain"
	"github.com/Saujanya0910/csv-to-json/pkg/records"

	"github.com/zeebo/xxh3"
)

// Row is a user encoded for an INSERT in Columns order. The JSON columns are
// carried as text so every driver can bind them.
type Row struct {
	Name           string
	Age            int
	Address        string
	AdditionalInfo string
	RowHash        int64
}

// Args returns the row's values in Columns order.
func (r Row) Args() []any {
	return []any{r.Name, r.Age, r.Address, r.AdditionalInfo, r.RowHash}
}

// EncodeUser encodes u for storage. RowHash is the xxh3 hash of the user's
// JSON encoding, which is deterministic: struct fields keep declaration order
// and record keys are sorted.
func EncodeUser(u domain.User) (Row, error) {
	addr, err := json.Marshal(u.Address)
	if err != nil {
		return Row{}, fmt.Errorf("encode address: %w", err)
	}
	info := u.AdditionalInfo
	if info == nil {
		info = records.Record{}
	}
	extra, err := json.Marshal(info)
	if err != nil {
		return Row{}, fmt.Errorf("encode additional_info: %w", err)
	}
	whole, err := json.Marshal(u)
	if err != nil {
		return Row{}, fmt.Errorf("encode user: %w", err)
	}
	return Row{
		Name:           u.Name,
		Age:            u.Age,
		Address:        string(addr),
		AdditionalInfo: string(extra),
		RowHash:        RowHash(whole),
	}, nil
}

// EncodeUsers encodes every user, failing on the first error.
func EncodeUsers(users []domain.User) ([]Row, error) {
	out := make([]Row, len(users))
	for i, u := range users {
		r, err := EncodeUser(u)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// RowHash folds b into a signed 64-bit value that fits a BIGINT column.
func RowHash(b []byte) int64 {
	return int64(xxh3.Hash(b))
}

// SingleUser builds the domain user InsertUser persists, rejecting a blank
// name.
func SingleUser(name string, age int, address domain.Address, additionalInfo records.Record) (domain.User, error) {
	if strings.TrimSpace(name) == "" {
		return domain.User{}, ErrEmptyName
	}
	return domain.User{Name: name, Age: age, Address: address, AdditionalInfo: additionalInfo}, nil
}
