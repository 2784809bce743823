package player

// Player is the audio playback boundary of the daemon. Implementations
// wrap whatever playback backend the device ships with.
type Player interface {
	// Start brings up the playback backend.
	Start() error
	// Stop shuts down the playback backend.
	Stop() error
	// PlayStation starts streaming the given url.
	PlayStation(url string) error
	// StopPlayback stops the current stream, if any.
	StopPlayback() error
}
