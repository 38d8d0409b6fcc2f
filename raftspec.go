// Package raftspec extracts structured technical and administrative records
// from liferaft equipment manuals and servicing certificates. Readers turn
// PDF pages and workbook sheets into raw blocks, the extraction engine turns
// a pass over those blocks into a partial record, partial records of one
// document merge into a canonical record, and a final pass keeps primary
// identifiers unique across the whole record set.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their role or primary dependency (e.g., sqlite/, excelize/, pdf/).
package raftspec
