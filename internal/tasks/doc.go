// Package tasks holds the bot's producers and consumers.
//
// # Consumers
//
// Each consumer implements [messages.Handler] and is subscribed to the bus by the CLI:
//
//  1. [QueueManager] : turns song requests into Spotify queue entries
//     - Parses the track link, looks the track up, adds it to the Spotify queue
//     - Persists a [models.QueueItem] so the requester can be credited later
//     - On failure asks for a refund and tells the requester why
//     - Answers queue requests with the pending queue
//
//  2. [ChatResponder] : everything that ends up in Twitch chat
//     - Announces the current song and answers !song
//     - Keeps the keyboard raffle entrants
//     - Delivers SendTwitchChat lines through a [ChatSender]
//     - Executes refunds through a [RewardRefunder]
//
//  3. [NixTimer] : a periodic reminder started and stopped by messages
//
// # Producers
//
// [NowPlayingPoller] polls the [services.Player] and publishes CurrentlyPlaying when the track changes.
// [ConsoleChat] reads chat lines and publishes the commands found by [ParseChatCommand].
//
// Time comes from a [clockwork.Clock] so tickers can be driven by a fake clock in tests.
package tasks
