package storage

import (
	"database/sql"
	"net/url"
	"strings"
)

// splitAddress breaks an absolute URL into the scheme/host/path triple the
// urls table stores as separate columns.
func splitAddress(address string) (scheme, host, path string) {
	u, err := url.Parse(address)
	if err != nil {
		return "", "", address
	}
	p := u.Path
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return u.Scheme, u.Host, p
}

// splitTokens splits a space-separated rel attribute value into its tokens,
// lowercased.
func splitTokens(value string) []string {
	fields := strings.Fields(strings.ToLower(value))
	return fields
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

func nullBoolPtr(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullFloatPtr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
