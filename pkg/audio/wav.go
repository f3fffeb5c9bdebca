package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/borgmon/wakeup/pkg/models"
)

// pcm is signed 16-bit little-endian interleaved audio
type pcm struct {
	sampleRate int
	channels   int
	data       []byte
}

// parseWAV parses a 16-bit PCM WAV file
func parseWAV(data []byte) (*pcm, error) {
	reader := bytes.NewReader(data)

	// Read RIFF header
	header := make([]byte, 12)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("wav header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, errors.New("wav: not a RIFF/WAVE file")
	}

	clip := &pcm{}
	var bitDepth int

	// Read chunks
	for {
		chunkID := make([]byte, 4)
		if _, err := io.ReadFull(reader, chunkID); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("wav: missing data chunk")
			}
			return nil, err
		}

		var chunkSize uint32
		if err := binary.Read(reader, binary.LittleEndian, &chunkSize); err != nil {
			return nil, err
		}

		switch string(chunkID) {
		case "fmt ":
			var f struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(reader, binary.LittleEndian, &f); err != nil {
				return nil, fmt.Errorf("wav fmt: %w", err)
			}
			clip.channels = int(f.NumChannels)
			clip.sampleRate = int(f.SampleRate)
			bitDepth = int(f.BitsPerSample)

			// Skip any extra format bytes
			if chunkSize > 16 {
				if _, err := reader.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					return nil, err
				}
			}
		case "data":
			if bitDepth != 16 {
				return nil, fmt.Errorf("wav: unsupported bit depth %d", bitDepth)
			}
			if clip.channels < 1 || clip.channels > 2 || clip.sampleRate <= 0 {
				return nil, fmt.Errorf("wav: unsupported format %d ch %d Hz", clip.channels, clip.sampleRate)
			}
			n := int(chunkSize)
			if n > reader.Len() {
				n = reader.Len()
			}
			clip.data = make([]byte, n)
			if _, err := io.ReadFull(reader, clip.data); err != nil {
				return nil, fmt.Errorf("wav data: %w", err)
			}
			return clip, nil
		default:
			// Skip unknown chunk
			if _, err := reader.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}
}

// toStereo duplicates mono frames into both channels
func (p *pcm) toStereo() *pcm {
	if p.channels == 2 {
		return p
	}
	out := make([]byte, 0, len(p.data)*2)
	for i := 0; i+1 < len(p.data); i += 2 {
		out = append(out, p.data[i], p.data[i+1], p.data[i], p.data[i+1])
	}
	return &pcm{sampleRate: p.sampleRate, channels: 2, data: out}
}

// LoadOverrides installs <dir>/<sound>.wav for every sound that has one. A
// missing directory or file keeps the synthesized tone; a bad file is
// logged and skipped. It returns the sounds that were replaced.
func (b *OtoBackend) LoadOverrides(dir string) []models.Sound {
	var loaded []models.Sound
	for _, sound := range models.AllSounds() {
		path := filepath.Join(dir, string(sound)+".wav")
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			b.log.Warnf("audio: read %s: %v", path, err)
			continue
		}
		if err := b.Override(sound, data); err != nil {
			b.log.Warnf("audio: %v", err)
			continue
		}
		loaded = append(loaded, sound)
	}
	return loaded
}
