package mediaprobe

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// go-mp3 always decodes to 16-bit stereo.
const mp3BytesPerSample = 4

// Extensions trusted when content sniffing is inconclusive.
var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Prober sniffs uploads with mimetype and decodes MP3 and WAV headers for duration.
// Other audio formats are accepted with a duration of 0.
type Prober struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{log: log.Named("mediaprobe")}
}

func (p *Prober) Sniff(fileName string, data []byte) (domain.MediaType, string, bool) {
	contentType := mimetype.Detect(data).String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if t, ok := classify(contentType); ok {
		return t, contentType, true
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	byExt, known := extensionTypes[ext]
	if !known {
		byExt = mime.TypeByExtension(ext)
	}
	if byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		if t, ok := classify(byExt); ok {
			return t, byExt, true
		}
	}
	return "", contentType, false
}

func classify(contentType string) (domain.MediaType, bool) {
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		return domain.MediaTypeAudio, true
	case strings.HasPrefix(contentType, "image/"):
		return domain.MediaTypeImage, true
	}
	return "", false
}

func (p *Prober) DurationSeconds(ctx context.Context, contentType string, data []byte) int {
	if err := ctx.Err(); err != nil {
		return 0
	}
	done := make(chan float64, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Warn("duration decoder panicked", zap.String("content_type", contentType), zap.Any("panic", r))
				done <- 0
			}
		}()
		done <- p.decode(contentType, data)
	}()
	select {
	case secs := <-done:
		if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0
		}
		return int(math.Round(secs))
	case <-ctx.Done():
		p.log.Warn("duration extraction abandoned", zap.String("content_type", contentType), zap.Error(ctx.Err()))
		return 0
	}
}

func (p *Prober) decode(contentType string, data []byte) float64 {
	switch contentType {
	case "audio/mpeg", "audio/mp3":
		return mp3Seconds(data, p.log)
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return wavSeconds(data, p.log)
	}
	p.log.Debug("no duration decoder for content type", zap.String("content_type", contentType))
	return 0
}

func mp3Seconds(data []byte, log *zap.Logger) float64 {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		log.Debug("mp3 decode failed", zap.Error(err))
		return 0
	}
	n := d.Length()
	if n <= 0 || d.SampleRate() <= 0 {
		return 0
	}
	return float64(n) / mp3BytesPerSample / float64(d.SampleRate())
}

func wavSeconds(data []byte, log *zap.Logger) float64 {
	// The decoder sizes its buffers from the chunk headers.
	if !wavChunksFit(data) {
		log.Debug("wav chunk sizes exceed file")
		return 0
	}
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		log.Debug("invalid wav file")
		return 0
	}
	dur, err := d.Duration()
	if err != nil {
		log.Debug("wav duration failed", zap.Error(err))
		return 0
	}
	return dur.Seconds()
}

// wavChunksFit reports whether every RIFF chunk lies inside data and the format chunk
// describes a playable stream.
func wavChunksFit(data []byte) bool {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return false
	}
	end := uint64(binary.LittleEndian.Uint32(data[4:8])) + 8
	if end > uint64(len(data)) {
		return false
	}
	var sawFmt, sawData bool
	for off := uint64(12); off+8 <= end; {
		id := string(data[off : off+4])
		size := uint64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size > end-body {
			return false
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return false
			}
			f := data[body : body+16]
			channels := binary.LittleEndian.Uint16(f[2:4])
			sampleRate := binary.LittleEndian.Uint32(f[4:8])
			byteRate := binary.LittleEndian.Uint32(f[8:12])
			bitDepth := binary.LittleEndian.Uint16(f[14:16])
			if channels == 0 || sampleRate == 0 || byteRate == 0 || bitDepth == 0 || bitDepth > 64 {
				return false
			}
			sawFmt = true
		case "data":
			sawData = true
		}
		off = body + size + size&1
	}
	return sawFmt && sawData
}
