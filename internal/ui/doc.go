// Package ui implements the interactive chat terminal interface using bubbletea's Elm architecture.
//
// The screen has three parts:
//   - a scrolling transcript of the conversation ([viewport.Model])
//   - a side panel listing the cart ([list.Model]), refreshed after every reply
//   - a single-line prompt ([textinput.Model]) replaced by a spinner while the agent works
//
// Messages run on the [session.Session] in a command, so the UI stays responsive during tool rounds.
// Checkout progress lines arrive on a channel and are appended to the transcript as they happen.
//
// Keys: enter sends, tab switches focus between chat and cart, pgup/pgdown scroll, ctrl+r starts a new
// conversation, esc or ctrl+c quits.
package ui
