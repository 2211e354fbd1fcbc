package volume

import "errors"

var ErrLevelNotFound = errors.New("volume level not found")
