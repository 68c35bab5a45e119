// Package model defines stable boundary types for API layers: page
// aggregates exchanged with external collaborators and coded errors.
//
// Revision identity is unaffected by any projection here. These structs are
// the only types intended for direct JSON serialization by consumers.
package model
