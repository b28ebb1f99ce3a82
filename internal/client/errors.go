package client

import "errors"

var ErrBadCommand = errors.New("unknown command")
