package core

import "time"

const (
	// MaxErrorMessageLength caps error messages returned to API clients
	MaxErrorMessageLength = 500

	// DBOperationTimeout bounds a single store call
	DBOperationTimeout = 5 * time.Second

	// CacheHitMessage is attached to analyses served from an existing record
	CacheHitMessage = "Retrieved from cache"
)
