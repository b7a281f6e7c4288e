// Package tools holds the actions the model may invoke and the [Registry] that dispatches them.
//
// Every handler returns text meant for the model. [Registry.Dispatch] never fails: unknown names,
// bad arguments and handler errors come back as "Error: ..." strings, so a bad call costs one round
// instead of the conversation.
//
// [Toolbox] binds the six music actions to one catalog and one cart:
//   - get_artist_songs, get_song_recommendations : discovery, nothing is added
//   - add_song_to_cart, remove_song_from_cart, review_cart : curation
//   - checkout_playlist : creates the playlist, clears the cart and records history
package tools
