package dialect_test

import (
	"testing"

	"github.com/brimdata/htsql/dialect"
	"github.com/stretchr/testify/assert"
)

func TestLimitOffset(t *testing.T) {
	n, m := int64(10), int64(4)
	assert.Equal(t, "LIMIT 10", dialect.LimitOffset(&n, nil, ""))
	assert.Equal(t, "LIMIT 10 OFFSET 4", dialect.LimitOffset(&n, &m, ""))
	assert.Equal(t, "OFFSET 4", dialect.LimitOffset(nil, &m, ""))
	assert.Equal(t, "LIMIT ALL OFFSET 4", dialect.LimitOffset(nil, &m, "ALL"))
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, "'O''Hara'", dialect.Base{}.QuoteString("O'Hara"))
}
