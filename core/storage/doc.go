// Package storage provides the object storage client used to archive phase
// artifacts after a successful commit.
//
// It wraps the Minio S3 client behind a narrow Client interface so that the
// archive step can be tested against the mocks subpackage. Archives live
// under archives/<meeting-code>/phase<N>.json in the configured bucket.
package storage
