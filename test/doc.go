// Package test holds cross-package examples and the integration suite.
//
// Run the suite with:
//
//	go test -tags integration ./test/...
//
// Set REDIS_ADDR to also run it against a real Redis.
package test
