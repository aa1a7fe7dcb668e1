// Package server implements an anonymous file drop service.
//
// Clients POST a file to /files/ and receive a content-derived public key
// for retrieval and a secret-derived private key for deletion. Each client
// address has a daily transfer allowance enforced in front of the handlers,
// and a background sweeper purges all stored files after a sustained idle
// period.
//
// Files live in a BlobStore (local directory or S3-compatible bucket) under
// the name <public key><original filename>; quota accounting lives in a
// single whole-snapshot store (JSON file or bbolt). Both assume a single
// server process.
package server
