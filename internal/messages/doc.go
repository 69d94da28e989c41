// Package messages defines the closed set of events exchanged between the bot's producers and consumers.
//
// Producers (chat commands, reward redemptions, playback polling) construct a variant and publish it; consumers (chat
// responder, queue manager, timer, monitor) receive it through a [Handler].
//
// # Closed Variant Set
//
// [Message] is sealed by an unexported method, so only the eleven variants declared here implement it:
//
//	CurrentlyPlaying          song, artists, requesterDisplayName
//	CurrentlyPlayingRequest   requesterDisplayName
//	KeyboardRaffleRequest     requesterDisplayName
//	SendTwitchChat            message
//	SongRequest               eventId, requesterDisplayName, rewardId, url
//	StartNixTimer             -
//	StopNixTimer              -
//	SongAddedToSpotifyQueue   track, requesterDisplayName
//	SongQueueRequest          -
//	SongQueue                 queue
//	RefundRewardRequest       eventId, requesterDisplayName, rewardId
//
// Payload fields are unexported and set only by the variant's constructor, which takes every field. Values are
// immutable: slices are copied on the way in and on the way out.
//
// # Exhaustive Matching
//
// Consumers implement [Handler], which has one method per variant, and receive messages through [Dispatch]. A new
// variant means a new [Handler] method, so every consumer stops compiling until it decides what to do with it. There
// is deliberately no partial or default handler to embed.
package messages
