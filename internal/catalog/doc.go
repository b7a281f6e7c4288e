// Package catalog defines the [Catalog] interface consumed by the curator tools and implements it for YouTube Music.
//
// # YouTube Music Implementation
//
// [YouTubeCatalog] communicates with the FastAPI proxy server wrapping ytmusicapi.
// Search, artist and radio lookups are unauthenticated. Playlist creation sends the
// credential bundle path in the X-Auth-File header.
//
// # Normalization
//
// The proxy returns ytmusicapi's heterogeneous shapes. Every row is normalized into [models.Song]:
//   - rows without a videoId are dropped; radio rows without a title are dropped too
//   - missing artist becomes [UnknownArtist], missing album [UnknownAlbum] ([SingleAlbum] for radio rows)
//   - radio rows report "length" where search rows report "duration"
//
// # Error Handling
//
// Lookups log a warning and return an empty result on failure. CreatePlaylist returns errors wrapping:
//   - [shared.ErrAuth] : no usable credential bundle, or the proxy rejected it
//   - [shared.ErrUpstream] : any other proxy failure, including [shared.ErrTimeout]
package catalog
