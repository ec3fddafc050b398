package tui

import (
	"github.com/anistream/anistream/hls"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/log"
	"github.com/anistream/anistream/player"
	"github.com/anistream/anistream/source"
	"github.com/spf13/viper"
)

// Playback is the player surface driven by the watch screen.
type Playback interface {
	Update(props player.Props) error
	SetQuality(tier string) error
	SetLanguage(lang source.Language) error
	Retry() error
	TogglePause() error
	PointerMove()
	Status() player.Status
	Subscribe(fn func(player.Status)) (unsubscribe func())
}

// Session is one player window.
type Session interface {
	Playback

	// Track reports the position and duration about once a second.
	Track(fn func(position, duration float64))
	// Done is closed when the viewer closes the window.
	Done() <-chan struct{}
	Close() error
}

// Launcher opens a player window titled title.
type Launcher func(title string) (Session, error)

var _ Playback = (*player.Controller)(nil)

type mpvSession struct {
	*player.Controller
	mpv *player.MPV
}

func (s *mpvSession) Track(fn func(position, duration float64)) {
	s.mpv.StartIPCTicker(fn)
}

func (s *mpvSession) Done() <-chan struct{} {
	return s.mpv.Wait()
}

func (s *mpvSession) Close() error {
	err := s.Unmount()
	if closeErr := s.mpv.Close(); err == nil {
		err = closeErr
	}
	return err
}

// MPVLauncher plays through mpv, with adaptive streams going through the
// loopback HLS pipeline unless mpv is configured to open them itself.
func MPVLauncher(lang source.Language) Launcher {
	return func(title string) (Session, error) {
		mpv := player.NewMPV(title, viper.GetBool(key.PlayerNativeAdaptive))
		if err := mpv.Start(); err != nil {
			return nil, err
		}

		controller := player.New(mpv, player.Options{
			NewPipeline: hls.Factory(hls.DefaultOptions()),
			MaxRetries:  viper.GetInt(key.PlayerMaxRetries),
			Language:    lang,
			OnDiagnostic: func(err error) {
				log.Debugf("player diagnostic: %v", err)
			},
		})

		return &mpvSession{Controller: controller, mpv: mpv}, nil
	}
}
