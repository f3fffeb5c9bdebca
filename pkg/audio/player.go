package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/ebitengine/oto/v3"
)

// Output format of the shared audio context
const (
	SampleRate   = 44100
	ChannelCount = 2
)

// Global audio context singleton
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxOnce sync.Once
	globalAudioCtxErr  error
)

// initAudioContext initializes the global audio context once
func initAudioContext() (*oto.Context, error) {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: ChannelCount,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			globalAudioCtxErr = fmt.Errorf("init audio context: %w", err)
			return
		}

		// Wait for the hardware audio devices to be ready
		<-readyChan
		globalAudioCtx = ctx
	})
	return globalAudioCtx, globalAudioCtxErr
}

// OtoBackend plays synthesized tones, or WAV overrides, through oto
type OtoBackend struct {
	mu        sync.Mutex
	log       logging.Logger
	overrides map[models.Sound]*pcm
	cache     map[models.Sound][]byte
}

// NewOtoBackend creates a backend. The audio device is opened lazily on the
// first Open.
func NewOtoBackend(log logging.Logger) *OtoBackend {
	return &OtoBackend{
		log:       log,
		overrides: make(map[models.Sound]*pcm),
		cache:     make(map[models.Sound][]byte),
	}
}

// Override replaces the synthesized tone of sound with a WAV file
func (b *OtoBackend) Override(sound models.Sound, wavData []byte) error {
	clip, err := parseWAV(wavData)
	if err != nil {
		return fmt.Errorf("audio: override %s: %w", sound, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[sound] = clip
	delete(b.cache, sound)
	return nil
}

// Open starts looping playback of p at volume
func (b *OtoBackend) Open(p Profile, volume float64) (Voice, error) {
	ctx, err := initAudioContext()
	if err != nil {
		return nil, err
	}
	data, err := b.render(p)
	if err != nil {
		return nil, err
	}
	v := &otoVoice{
		stopChan: make(chan struct{}),
		volume:   volume,
		log:      b.log,
	}
	go v.playLoop(ctx, data)
	return v, nil
}

// render returns output-format PCM for the profile, resampled by its rate
func (b *OtoBackend) render(p Profile) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if data, ok := b.cache[p.Sound]; ok {
		return data, nil
	}

	var source *pcm
	if clip, ok := b.overrides[p.Sound]; ok {
		source = clip.toStereo()
	} else {
		tone, err := Synthesize(p.Sound, SampleRate)
		if err != nil {
			return nil, err
		}
		source = tone
	}
	factor := p.Rate * float64(source.sampleRate) / float64(SampleRate)
	data := resample(source.data, ChannelCount, factor)
	if len(data) == 0 {
		return nil, errors.New("audio: empty clip")
	}
	b.cache[p.Sound] = data
	return data, nil
}

// otoVoice loops one clip until closed
type otoVoice struct {
	mu       sync.Mutex
	stopChan chan struct{}
	player   *oto.Player
	volume   float64
	stopped  bool
	log      logging.Logger
}

func (v *otoVoice) playLoop(ctx *oto.Context, audioData []byte) {
	// Loop the alarm sound until stopped
	for {
		v.mu.Lock()
		if v.stopped {
			v.mu.Unlock()
			return
		}
		// Create a new player for each loop iteration
		player := ctx.NewPlayer(bytes.NewReader(audioData))
		player.SetVolume(v.volume)
		v.player = player
		v.mu.Unlock()

		// Play starts playing the sound and returns without waiting
		player.Play()

		// Wait for the sound to finish playing or stop signal
		for player.IsPlaying() {
			select {
			case <-v.stopChan:
				player.Pause()
				if err := player.Close(); err != nil {
					v.log.Warnf("audio: close player: %v", err)
				}
				return
			case <-time.After(10 * time.Millisecond):
			}
		}

		// Close the player before creating a new one
		if err := player.Close(); err != nil {
			v.log.Warnf("audio: close player: %v", err)
		}
	}
}

// SetVolume changes the volume of the live and future loop iterations
func (v *otoVoice) SetVolume(volume float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = volume
	if v.player != nil {
		v.player.SetVolume(volume)
	}
}

// Close stops the audio playback
func (v *otoVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.stopped {
		v.stopped = true
		close(v.stopChan)
		if v.player != nil {
			v.player.Pause()
		}
	}
	return nil
}

var _ Backend = (*OtoBackend)(nil)
