package adapters

import (
	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"
)

// SourceFallback tags a section whose payload came from a built-in pool
// because the upstream could not serve it.
const SourceFallback = "fallback"

type base struct {
	logger *applogger.Logger
}

type Option func(*base)

func WithLogger(l *applogger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

func newBase(opts []Option) base {
	b := base{logger: applogger.NewNop()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}
