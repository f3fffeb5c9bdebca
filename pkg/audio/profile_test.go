package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileForEverySound(t *testing.T) {
	for _, s := range models.AllSounds() {
		p, err := ProfileFor(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.Sound)
		assert.Greater(t, p.Rate, 0.0)
		assert.True(t, len(p.Pattern)%2 == 0, "pattern of %s must pair audible and quiet steps", s)
	}
}

func TestProfileContinuousSounds(t *testing.T) {
	for _, s := range []models.Sound{models.SoundClassic, models.SoundSunrise, models.SoundOcean} {
		p, _ := ProfileFor(s)
		assert.True(t, p.Continuous(), s)
		assert.Equal(t, 0.7, p.VolumeAt(3, 0.7))
	}
}

func TestProfileRadarPattern(t *testing.T) {
	p, err := ProfileFor(models.SoundRadar)
	require.NoError(t, err)

	audible, hold := p.Step(0)
	assert.True(t, audible)
	assert.Equal(t, 400*time.Millisecond, hold)

	audible, hold = p.Step(3)
	assert.False(t, audible)
	assert.Equal(t, 900*time.Millisecond, hold)

	audible, hold = p.Step(4)
	assert.True(t, audible)
	assert.Equal(t, 400*time.Millisecond, hold)
}

func TestVolumeAtFloor(t *testing.T) {
	p, _ := ProfileFor(models.SoundPulse)
	assert.Equal(t, 1.0, p.VolumeAt(0, 1.0))
	assert.Equal(t, FloorVolume, p.VolumeAt(1, 1.0))
	assert.Equal(t, 0.01, p.VolumeAt(1, 0.01))
}

func TestSynthesizeEverySound(t *testing.T) {
	for _, s := range models.AllSounds() {
		clip, err := Synthesize(s, 8000)
		require.NoError(t, err, s)
		assert.Equal(t, 2, clip.channels)
		assert.Len(t, clip.data, int(clipSeconds*8000)*4)
	}
	_, err := Synthesize(models.Sound("kazoo"), 8000)
	assert.ErrorIs(t, err, models.ErrUnknownSound)
}

func TestResample(t *testing.T) {
	data := make([]byte, 400) // 100 stereo frames
	assert.Len(t, resample(data, 2, 2.0), 200)
	assert.Len(t, resample(data, 2, 0.5), 800)
	assert.Len(t, resample(data, 2, 1.0), 400)
	assert.Nil(t, resample(data, 2, 0))
}

func wavBytes(channels, rate, bits int, samples []int16) []byte {
	var buf bytes.Buffer
	dataLen := len(samples) * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*bits/8))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

func TestParseWAVMonoToStereo(t *testing.T) {
	clip, err := parseWAV(wavBytes(1, 22050, 16, []int16{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 22050, clip.sampleRate)
	assert.Len(t, clip.data, 6)

	stereo := clip.toStereo()
	assert.Equal(t, 2, stereo.channels)
	assert.Len(t, stereo.data, 12)
	assert.Equal(t, stereo.data[0:2], stereo.data[2:4])
}

func TestParseWAVRejects(t *testing.T) {
	_, err := parseWAV([]byte("nope"))
	assert.Error(t, err)

	_, err = parseWAV(wavBytes(2, 44100, 8, []int16{0}))
	assert.Error(t, err)
}
