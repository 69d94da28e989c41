// Package ui implements a live terminal monitor for the bot using bubbletea's Elm architecture.
//
// The monitor has two views:
//  1. [EventsView] : every message seen on the bus, newest last
//  2. [QueueView] : the pending song requests, refreshed on demand
//
// A now-playing panel and the raffle entrant count are shown above both views.
//
// Bus traffic reaches the (view) [Model] through [Feed], a [messages.Handler] that forwards each message to the
// running [tea.Program] as a [Msg]. Keys publish requests back onto the bus: r refreshes the queue, n and N start and
// stop the Nix reminder.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
