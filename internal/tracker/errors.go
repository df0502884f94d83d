package tracker

import "errors"

// ErrDisabled is returned by Nop.Create: no record exists to refer to later.
var ErrDisabled = errors.New("external tracker is not configured")
