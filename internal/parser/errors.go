package parser

import "gitlab.com/tozd/go/errors"

var ErrPoolClosed = errors.Base("parser pool closed")
