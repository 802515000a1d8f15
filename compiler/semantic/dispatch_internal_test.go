package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverloadOrder(t *testing.T) {
	for key, list := range overloads {
		for i, earlier := range list {
			for _, later := range list[i+1:] {
				if len(earlier.kinds) != len(later.kinds) {
					continue
				}
				assert.False(t, accepts(earlier.kinds, later.kinds) && !accepts(later.kinds, earlier.kinds),
					"%s: %s is listed after the more general %s", key, kindList(later.kinds), kindList(earlier.kinds))
			}
		}
	}
}
