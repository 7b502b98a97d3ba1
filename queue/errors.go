package queue

import (
	"fmt"

	"github.com/fairyhunter13/redisqueue/domain"
)

func errInvalidConfig(msg string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, msg, err)
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}
