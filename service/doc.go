// Package service holds the IOC pipelines that sit between the HTTP and CLI
// surfaces and the store: URL analysis with its record cache, SIEM query
// generation, and the per-user history view.
//
// Each service declares the narrow storage interface it consumes. The
// storage.SQLStore satisfies all of them.
package service
