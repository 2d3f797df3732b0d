// Package alarm implements the gRPC transport of the alarm daemon.
//
// The AlarmService is declared by hand and carries JSON-encoded messages
// through a codec registered under the "json" content subtype, so no
// generated protobuf code is involved. The package provides the service
// descriptor, a client stub and a server that adapts a business-service
// interface and maps domain errors to gRPC status codes.
package alarm
