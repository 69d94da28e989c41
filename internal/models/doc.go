// Package models defines the records shared between the Spotify client, the song queue and the message taxonomy.
//
//   - [Track] : a Spotify track as reported by the Web API
//   - [QueueItem] : a viewer's song request that was added to the Spotify queue
package models
