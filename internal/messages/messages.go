package messages

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/desertthunder/songbot/internal/models"
)

// Kind is the tag identifying a [Message] variant.
type Kind int

const (
	KindCurrentlyPlaying Kind = iota
	KindCurrentlyPlayingRequest
	KindKeyboardRaffleRequest
	KindSendTwitchChat
	KindSongRequest
	KindStartNixTimer
	KindStopNixTimer
	KindSongAddedToSpotifyQueue
	KindSongQueueRequest
	KindSongQueue
	KindRefundRewardRequest

	kindCount
)

var kindNames = [kindCount]string{
	KindCurrentlyPlaying:        "CurrentlyPlaying",
	KindCurrentlyPlayingRequest: "CurrentlyPlayingRequest",
	KindKeyboardRaffleRequest:   "KeyboardRaffleRequest",
	KindSendTwitchChat:          "SendTwitchChat",
	KindSongRequest:             "SongRequest",
	KindStartNixTimer:           "StartNixTimer",
	KindStopNixTimer:            "StopNixTimer",
	KindSongAddedToSpotifyQueue: "SongAddedToSpotifyQueue",
	KindSongQueueRequest:        "SongQueueRequest",
	KindSongQueue:               "SongQueue",
	KindRefundRewardRequest:     "RefundRewardRequest",
}

// String returns the variant tag.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds returns every variant tag in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, kindCount)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ErrNilMessage is returned when dispatching a nil [Message].
var ErrNilMessage = errors.New("nil message")

// Message is one of the eleven event variants declared in this package.
type Message interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Accept calls the [Handler] method for this variant.
	Accept(ctx context.Context, h Handler) error
	// String renders the tag and payload.
	String() string

	isMessage()
}

// Handler reacts to messages. It has one method per variant; implementations must handle all of them.
type Handler interface {
	OnCurrentlyPlaying(ctx context.Context, m CurrentlyPlaying) error
	OnCurrentlyPlayingRequest(ctx context.Context, m CurrentlyPlayingRequest) error
	OnKeyboardRaffleRequest(ctx context.Context, m KeyboardRaffleRequest) error
	OnSendTwitchChat(ctx context.Context, m SendTwitchChat) error
	OnSongRequest(ctx context.Context, m SongRequest) error
	OnStartNixTimer(ctx context.Context, m StartNixTimer) error
	OnStopNixTimer(ctx context.Context, m StopNixTimer) error
	OnSongAddedToSpotifyQueue(ctx context.Context, m SongAddedToSpotifyQueue) error
	OnSongQueueRequest(ctx context.Context, m SongQueueRequest) error
	OnSongQueue(ctx context.Context, m SongQueue) error
	OnRefundRewardRequest(ctx context.Context, m RefundRewardRequest) error
}

// Dispatch routes m to the matching method of h.
func Dispatch(ctx context.Context, m Message, h Handler) error {
	if m == nil {
		return ErrNilMessage
	}
	return m.Accept(ctx, h)
}

// Equal reports whether two messages have the same tag and payload.
func Equal(a, b Message) bool {
	return reflect.DeepEqual(a, b)
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// CurrentlyPlaying announces the track that just started playing.
type CurrentlyPlaying struct {
	song                 string
	artists              []string
	requesterDisplayName string
}

// NewCurrentlyPlaying constructs a [CurrentlyPlaying]. requesterDisplayName is empty when nobody requested the song.
func NewCurrentlyPlaying(song string, artists []string, requesterDisplayName string) CurrentlyPlaying {
	return CurrentlyPlaying{song: song, artists: cloneStrings(artists), requesterDisplayName: requesterDisplayName}
}

func (m CurrentlyPlaying) Song() string                 { return m.song }
func (m CurrentlyPlaying) Artists() []string            { return cloneStrings(m.artists) }
func (m CurrentlyPlaying) RequesterDisplayName() string { return m.requesterDisplayName }

func (m CurrentlyPlaying) Kind() Kind { return KindCurrentlyPlaying }
func (m CurrentlyPlaying) Accept(ctx context.Context, h Handler) error {
	return h.OnCurrentlyPlaying(ctx, m)
}
func (m CurrentlyPlaying) String() string {
	return fmt.Sprintf("%s{song: %q, artists: %q, requesterDisplayName: %q}", m.Kind(), m.song, m.artists, m.requesterDisplayName)
}
func (CurrentlyPlaying) isMessage() {}

// CurrentlyPlayingRequest asks for the current song to be announced in chat.
type CurrentlyPlayingRequest struct {
	requesterDisplayName string
}

func NewCurrentlyPlayingRequest(requesterDisplayName string) CurrentlyPlayingRequest {
	return CurrentlyPlayingRequest{requesterDisplayName: requesterDisplayName}
}

func (m CurrentlyPlayingRequest) RequesterDisplayName() string { return m.requesterDisplayName }

func (m CurrentlyPlayingRequest) Kind() Kind { return KindCurrentlyPlayingRequest }
func (m CurrentlyPlayingRequest) Accept(ctx context.Context, h Handler) error {
	return h.OnCurrentlyPlayingRequest(ctx, m)
}
func (m CurrentlyPlayingRequest) String() string {
	return fmt.Sprintf("%s{requesterDisplayName: %q}", m.Kind(), m.requesterDisplayName)
}
func (CurrentlyPlayingRequest) isMessage() {}

// KeyboardRaffleRequest enters a viewer into the keyboard raffle.
type KeyboardRaffleRequest struct {
	requesterDisplayName string
}

func NewKeyboardRaffleRequest(requesterDisplayName string) KeyboardRaffleRequest {
	return KeyboardRaffleRequest{requesterDisplayName: requesterDisplayName}
}

func (m KeyboardRaffleRequest) RequesterDisplayName() string { return m.requesterDisplayName }

func (m KeyboardRaffleRequest) Kind() Kind { return KindKeyboardRaffleRequest }
func (m KeyboardRaffleRequest) Accept(ctx context.Context, h Handler) error {
	return h.OnKeyboardRaffleRequest(ctx, m)
}
func (m KeyboardRaffleRequest) String() string {
	return fmt.Sprintf("%s{requesterDisplayName: %q}", m.Kind(), m.requesterDisplayName)
}
func (KeyboardRaffleRequest) isMessage() {}

// SendTwitchChat asks for a line to be written to Twitch chat.
type SendTwitchChat struct {
	message string
}

func NewSendTwitchChat(message string) SendTwitchChat {
	return SendTwitchChat{message: message}
}

func (m SendTwitchChat) Message() string { return m.message }

func (m SendTwitchChat) Kind() Kind { return KindSendTwitchChat }
func (m SendTwitchChat) Accept(ctx context.Context, h Handler) error {
	return h.OnSendTwitchChat(ctx, m)
}
func (m SendTwitchChat) String() string {
	return fmt.Sprintf("%s{message: %q}", m.Kind(), m.message)
}
func (SendTwitchChat) isMessage() {}

// SongRequest is a channel point redemption asking for a Spotify track to be queued.
type SongRequest struct {
	eventID              string
	requesterDisplayName string
	rewardID             string
	url                  string
}

func NewSongRequest(eventID, requesterDisplayName, rewardID, url string) SongRequest {
	return SongRequest{eventID: eventID, requesterDisplayName: requesterDisplayName, rewardID: rewardID, url: url}
}

func (m SongRequest) EventID() string              { return m.eventID }
func (m SongRequest) RequesterDisplayName() string { return m.requesterDisplayName }
func (m SongRequest) RewardID() string             { return m.rewardID }
func (m SongRequest) URL() string                  { return m.url }

func (m SongRequest) Kind() Kind { return KindSongRequest }
func (m SongRequest) Accept(ctx context.Context, h Handler) error {
	return h.OnSongRequest(ctx, m)
}
func (m SongRequest) String() string {
	return fmt.Sprintf("%s{eventId: %q, requesterDisplayName: %q, rewardId: %q, url: %q}",
		m.Kind(), m.eventID, m.requesterDisplayName, m.rewardID, m.url)
}
func (SongRequest) isMessage() {}

// StartNixTimer starts the periodic Nix reminder.
type StartNixTimer struct{}

func NewStartNixTimer() StartNixTimer { return StartNixTimer{} }

func (m StartNixTimer) Kind() Kind { return KindStartNixTimer }
func (m StartNixTimer) Accept(ctx context.Context, h Handler) error {
	return h.OnStartNixTimer(ctx, m)
}
func (m StartNixTimer) String() string { return m.Kind().String() + "{}" }
func (StartNixTimer) isMessage()       {}

// StopNixTimer stops the periodic Nix reminder.
type StopNixTimer struct{}

func NewStopNixTimer() StopNixTimer { return StopNixTimer{} }

func (m StopNixTimer) Kind() Kind { return KindStopNixTimer }
func (m StopNixTimer) Accept(ctx context.Context, h Handler) error {
	return h.OnStopNixTimer(ctx, m)
}
func (m StopNixTimer) String() string { return m.Kind().String() + "{}" }
func (StopNixTimer) isMessage()       {}

// SongAddedToSpotifyQueue reports a requested track that made it into the Spotify queue.
type SongAddedToSpotifyQueue struct {
	track                models.Track
	requesterDisplayName string
}

func NewSongAddedToSpotifyQueue(track models.Track, requesterDisplayName string) SongAddedToSpotifyQueue {
	return SongAddedToSpotifyQueue{track: normalizeTrack(track), requesterDisplayName: requesterDisplayName}
}

func (m SongAddedToSpotifyQueue) Track() models.Track          { return normalizeTrack(m.track) }
func (m SongAddedToSpotifyQueue) RequesterDisplayName() string { return m.requesterDisplayName }

func (m SongAddedToSpotifyQueue) Kind() Kind { return KindSongAddedToSpotifyQueue }
func (m SongAddedToSpotifyQueue) Accept(ctx context.Context, h Handler) error {
	return h.OnSongAddedToSpotifyQueue(ctx, m)
}
func (m SongAddedToSpotifyQueue) String() string {
	return fmt.Sprintf("%s{track: %s, requesterDisplayName: %q}", m.Kind(), m.track, m.requesterDisplayName)
}
func (SongAddedToSpotifyQueue) isMessage() {}

// SongQueueRequest asks for the pending song queue.
type SongQueueRequest struct{}

func NewSongQueueRequest() SongQueueRequest { return SongQueueRequest{} }

func (m SongQueueRequest) Kind() Kind { return KindSongQueueRequest }
func (m SongQueueRequest) Accept(ctx context.Context, h Handler) error {
	return h.OnSongQueueRequest(ctx, m)
}
func (m SongQueueRequest) String() string { return m.Kind().String() + "{}" }
func (SongQueueRequest) isMessage()       {}

// SongQueue carries the pending song queue, next song first.
type SongQueue struct {
	queue []models.QueueItem
}

func NewSongQueue(queue []models.QueueItem) SongQueue {
	return SongQueue{queue: cloneQueue(queue)}
}

func (m SongQueue) Queue() []models.QueueItem { return cloneQueue(m.queue) }

func (m SongQueue) Kind() Kind { return KindSongQueue }
func (m SongQueue) Accept(ctx context.Context, h Handler) error {
	return h.OnSongQueue(ctx, m)
}
func (m SongQueue) String() string {
	tracks := make([]string, len(m.queue))
	for i, item := range m.queue {
		tracks[i] = item.Track.String()
	}
	return fmt.Sprintf("%s{queue: %v}", m.Kind(), tracks)
}
func (SongQueue) isMessage() {}

// RefundRewardRequest asks for a channel point redemption to be refunded.
type RefundRewardRequest struct {
	eventID              string
	requesterDisplayName string
	rewardID             string
}

func NewRefundRewardRequest(eventID, requesterDisplayName, rewardID string) RefundRewardRequest {
	return RefundRewardRequest{eventID: eventID, requesterDisplayName: requesterDisplayName, rewardID: rewardID}
}

func (m RefundRewardRequest) EventID() string              { return m.eventID }
func (m RefundRewardRequest) RequesterDisplayName() string { return m.requesterDisplayName }
func (m RefundRewardRequest) RewardID() string             { return m.rewardID }

func (m RefundRewardRequest) Kind() Kind { return KindRefundRewardRequest }
func (m RefundRewardRequest) Accept(ctx context.Context, h Handler) error {
	return h.OnRefundRewardRequest(ctx, m)
}
func (m RefundRewardRequest) String() string {
	return fmt.Sprintf("%s{eventId: %q, requesterDisplayName: %q, rewardId: %q}",
		m.Kind(), m.eventID, m.requesterDisplayName, m.rewardID)
}
func (RefundRewardRequest) isMessage() {}

func normalizeTrack(t models.Track) models.Track {
	t.Artists = cloneStrings(t.Artists)
	return t
}

func cloneQueue(queue []models.QueueItem) []models.QueueItem {
	if len(queue) == 0 {
		return nil
	}
	out := make([]models.QueueItem, len(queue))
	for i, item := range queue {
		item = item.Clone()
		item.Track = normalizeTrack(item.Track)
		out[i] = item
	}
	return out
}

var (
	_ Message = CurrentlyPlaying{}
	_ Message = CurrentlyPlayingRequest{}
	_ Message = KeyboardRaffleRequest{}
	_ Message = SendTwitchChat{}
	_ Message = SongRequest{}
	_ Message = StartNixTimer{}
	_ Message = StopNixTimer{}
	_ Message = SongAddedToSpotifyQueue{}
	_ Message = SongQueueRequest{}
	_ Message = SongQueue{}
	_ Message = RefundRewardRequest{}
)
