package entities

import "errors"

var (
	ErrNotFound      = errors.New("entity not found")
	ErrNoRates       = errors.New("rate table not loaded")
	ErrBadStatus     = errors.New("rates api returned bad status")
	ErrAPIResult     = errors.New("rates api returned non-success result")
	ErrMissingRates  = errors.New("rates api response has no rates")
	ErrMissingRate   = errors.New("rate table is missing an offered currency")
	ErrRedisTimeout  = errors.New("timeout waiting for Redis message")
	ErrRedisCanceled = errors.New("redis subscription canceled")
)
