package mysql_test

import (
	"testing"

	"github.com/brimdata/htsql/dialect/mysql"
	"github.com/stretchr/testify/assert"
)

func ptr(n int64) *int64 {
	return &n
}

func TestQuoteString(t *testing.T) {
	d := mysql.New()
	assert.Equal(t, `'it''s'`, d.QuoteString("it's"))
	assert.Equal(t, `'a\\b'`, d.QuoteString(`a\b`))
}

func TestLimit(t *testing.T) {
	d := mysql.New()
	assert.Equal(t, "LIMIT 3", d.Limit(ptr(3), nil))
	assert.Equal(t, "LIMIT 18446744073709551615 OFFSET 7", d.Limit(nil, ptr(7)))
}
