package devtools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutZeroValueIsExpired(t *testing.T) {
	t.Parallel()

	var timeout Timeout
	assert.True(t, timeout.Expired())
}

func TestTimeoutZeroDurationIsExpired(t *testing.T) {
	t.Parallel()

	assert.True(t, NewTimeout(0).Expired())
}

func TestTimeoutRemaining(t *testing.T) {
	t.Parallel()

	timeout := NewTimeout(time.Minute)
	assert.False(t, timeout.Expired())
	assert.Greater(t, timeout.Remaining(), 50*time.Second)
	assert.False(t, timeout.Deadline().IsZero())
}
