// Package nativemem implements the native memory service used to build mechanism parameter blocks.
//
// Allocations live outside the Go heap so their addresses stay stable while a native token call
// reads them. With cgo the C heap is used (malloc/free); without cgo anonymous private mappings
// (mmap/munmap) serve the same purpose on Unix systems.
package nativemem
