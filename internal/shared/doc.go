// Package shared holds code used across the gcbmprep packages that belongs
// to no single pipeline stage.
//
// The testutil subpackage provides log capture for asserting on structured
// log output and writers for the CSV and workbook fixtures the ingest,
// validation and pipeline tests build in temporary directories. It must
// only be imported from _test.go files.
package shared
