package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, FormatAmount(192200), "192,200.00")
	assert.Contains(t, FormatAmount(1500.505), "1,500.51")
	assert.Contains(t, FormatAmount(0), "0.00")
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+12.50%", FormatPercent(12.5, 2))
	assert.Equal(t, "+0.0%", FormatPercent(0, 1))
	assert.Equal(t, "-6.7%", FormatPercent(-6.666, 1))
}
