// Package repositories implements SQLite persistence for checkout history.
//
// [PlaylistRepository] stores every playlist created through checkout together with its ordered songs.
// It satisfies models.Repository[*models.PlaylistRecord] and doubles as the recorder the toolbox
// calls after a successful checkout.
//
// Records are immutable once written: there is no update, and Delete removes a record and its songs
// in one transaction.
package repositories
