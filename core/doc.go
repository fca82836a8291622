// Package core contains the VSS client: the versioned item model, the
// transport mode sum type, the client facade and its error taxonomy.
// Concrete HTTP adapters live in the transport and auth packages; core only
// depends on their contracts.
package core
