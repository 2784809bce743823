package player

type NoopPlayer struct {
}

// Compile time check for protocol compatibility
var _ Player = (*NoopPlayer)(nil)

// NewNoopPlayer returns a player that accepts every command and plays
// nothing, for devices without an audio backend.
func NewNoopPlayer() *NoopPlayer {
	return &NoopPlayer{}
}

func (n *NoopPlayer) Start() error {
	return nil
}

func (n *NoopPlayer) Stop() error {
	return nil
}

func (n *NoopPlayer) PlayStation(url string) error {
	return nil
}

func (n *NoopPlayer) StopPlayback() error {
	return nil
}
