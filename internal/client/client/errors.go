package client

import (
	"errors"

	"github.com/dmitrijs2005/binsync/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrUnauthorized
)
