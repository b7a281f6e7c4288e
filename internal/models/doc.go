// Package models defines the domain types shared by the catalog, cart, agent and persistence layers.
//
//   - [Song] : a normalized catalog track, the unit held by a cart
//   - [PlaylistRecord] : a playlist created through checkout, persisted as history
//
// [PlaylistRecord] implements [Model]; the [Repository] interface defines data access for persisted models.
package models
