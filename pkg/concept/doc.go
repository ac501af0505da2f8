// Package concept defines the building blocks of a concept model: concept
// types (grammar shapes) with their members, concept instances, reference
// slots, and the plugin-facing macro and initializer contracts.
//
// Concept types are declared once at startup and are immutable afterwards.
// Instances are value objects whose identity is their canonical key (see
// package identity); references between instances are stored as a pending
// key plus a model handle that is filled in when the reference resolves.
package concept
