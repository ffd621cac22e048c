package rate

import (
	"fmt"

	"github.com/MrEthical07/goVault/internal/kinds"
)

var (
	// ErrRateLimited reports an exhausted attempt budget. It carries TOO_MANY_ATTEMPTS.
	ErrRateLimited = fmt.Errorf("%w: rate limited", kinds.ErrTooManyAttempts)
	// ErrRedisUnavailable wraps limiter transport failures.
	ErrRedisUnavailable = fmt.Errorf("%w: redis unavailable", kinds.ErrInternal)
)
