package media

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const opusSampleRate = 48000

// FileSource streams an Ogg Opus file as the local audio track, looping
// when it reaches the end. It stands in for a microphone on machines that
// have none.
type FileSource struct {
	path  string
	track *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	enabled bool
	started bool
	stop    chan struct{}
}

// NewFileSource validates the file exists and prepares the track; no data
// flows until Start.
func NewFileSource(path string) (*FileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "paircall",
	)
	if err != nil {
		return nil, fmt.Errorf("create audio track: %w", err)
	}

	return &FileSource{
		path:    path,
		track:   track,
		enabled: true,
		stop:    make(chan struct{}),
	}, nil
}

// Start launches the playback loop. Idempotent.
func (f *FileSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	f.started = true
	go f.playLoop()
	return nil
}

// Stop ends playback. The track stays attached; it just goes quiet.
func (f *FileSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
}

// SetEnabled mutes or unmutes the audio track. Video is not ours.
func (f *FileSource) SetEnabled(kind Kind, enabled bool) {
	if kind != Audio {
		return
	}
	f.mu.Lock()
	f.enabled = enabled
	f.mu.Unlock()
}

// Tracks returns the single audio track.
func (f *FileSource) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{f.track}
}

// playLoop paces Ogg pages out at their granule-position timing, looping
// the file until stopped. Write errors end the loop; the connection is
// gone anyway.
func (f *FileSource) playLoop() {
	for {
		select {
		case <-f.stop:
			return
		default:
		}
		if err := f.playOnce(); err != nil {
			return
		}
	}
}

func (f *FileSource) playOnce() error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer file.Close()

	ogg, _, err := oggreader.NewWith(file)
	if err != nil {
		return err
	}

	var lastGranule uint64
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		pageData, pageHeader, err := ogg.ParseNextPage()
		if err != nil {
			return nil // end of file; caller loops
		}

		sampleCount := pageHeader.GranulePosition - lastGranule
		lastGranule = pageHeader.GranulePosition
		duration := time.Duration(sampleCount*uint64(time.Second)) / opusSampleRate

		select {
		case <-f.stop:
			return fmt.Errorf("stopped")
		case <-ticker.C:
		}

		f.mu.Lock()
		enabled := f.enabled
		f.mu.Unlock()
		if !enabled {
			continue
		}

		if err := f.track.WriteSample(pionmedia.Sample{Data: pageData, Duration: duration}); err != nil {
			return err
		}
	}
}
