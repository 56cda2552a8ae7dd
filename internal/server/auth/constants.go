package auth

import "time"

const (
    DefaultAccessTTL = 15 * time.Minute
)
