// Package mp4source implements ports.MediaOpener for MP4 files.
//
// Progressive and fragmented files are demuxed with mp4ff. H.264 samples are
// converted from AVCC to Annex B and decoded with h264decoder.
package mp4source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/ideamans/go-l10n"

	"github.com/user/vidsprite/pkg/adapters/codecdetect"
	"github.com/user/vidsprite/pkg/adapters/h264decoder"
	"github.com/user/vidsprite/pkg/mediatime"
	"github.com/user/vidsprite/pkg/pipeline"
	"github.com/user/vidsprite/pkg/ports"
)

var (
	// ErrUnsupportedCodec is returned when decoding a track that is not H.264.
	ErrUnsupportedCodec = errors.New("mp4source: unsupported codec")

	// ErrStalePacket is returned when Decode is given a packet other than the
	// most recent one in all-frames mode.
	ErrStalePacket = errors.New("mp4source: packet is not the most recent")
)

// nonSyncFlag is the sample_is_non_sync_sample bit of fragment sample flags.
const nonSyncFlag = 0x00010000

// Opener opens MP4 files.
type Opener struct {
	// KeyframesOnly restricts packets to sync samples.
	KeyframesOnly bool
	// FFmpegPath overrides the ffmpeg lookup when set.
	FFmpegPath string

	logger ports.Logger
}

// New creates an Opener.
func New(keyframesOnly bool, logger ports.Logger) *Opener {
	return &Opener{
		KeyframesOnly: keyframesOnly,
		logger:        logger.WithComponent("mp4"),
	}
}

// Open demuxes the sample tables of path. Sample payloads are read lazily.
func (o *Opener) Open(ctx context.Context, path string) (ports.MediaSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(o.FFmpegPath)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", pipeline.ErrIO, path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", pipeline.ErrIO, path, err)
	}

	src, err := newSource(f, path, st.Size(), o.KeyframesOnly, o.logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	o.logger.Debug(l10n.F("Opened %s: %d samples, keyframes only %t", path, len(src.samples), o.KeyframesOnly))
	return src, nil
}

var _ ports.MediaOpener = (*Opener)(nil)

type sample struct {
	nr   uint32 // progressive sample number, 0 for fragmented samples
	data []byte // fragmented payload
	dts  uint64
	cto  int32 // composition time offset
	dur  uint32
	key  bool
}

// Source is an opened MP4 file.
type Source struct {
	file   io.ReadSeekCloser
	path   string
	size   int64
	logger ports.Logger

	stream    ports.StreamInfo
	streamErr error
	duration  mediatime.Time

	stbl          *mp4.StblBox
	paramSets     []byte
	samples       []sample
	next          int
	keyframesOnly bool

	// all-frames mode: Annex B of every sample since the last keyframe
	// and their composition times in decode order
	gop     []byte
	gopCTS  []int64
	lastPTS mediatime.Time

	decoder      *h264decoder.Decoder
	decoderReady bool
}

func newSource(f io.ReadSeekCloser, path string, size int64, keyframesOnly bool, logger ports.Logger) (*Source, error) {
	parsed, err := mp4.DecodeFile(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode mp4 %s: %v", pipeline.ErrTruncatedStream, path, err)
	}

	s := &Source{
		file:          f,
		path:          path,
		size:          size,
		logger:        logger,
		keyframesOnly: keyframesOnly,
		decoder:       h264decoder.New(),
	}
	s.duration = movieDuration(parsed)

	trak := codecdetect.VideoTrack(parsed)
	if trak == nil {
		s.streamErr = ports.ErrNoVideoStream
		return s, nil
	}

	if err := s.load(parsed, trak); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) load(parsed *mp4.File, trak *mp4.TrakBox) error {
	timescale := uint32(1000)
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		timescale = trak.Mdia.Mdhd.Timescale
	}
	tb := mediatime.Rational{Num: 1, Den: int64(timescale)}

	s.stream = ports.StreamInfo{
		Index:    int(trak.Tkhd.TrackID),
		Codec:    string(codecdetect.FromTrack(trak)),
		TimeBase: tb,
	}

	var stsd *mp4.StsdBox
	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil {
		s.stbl = trak.Mdia.Minf.Stbl
		stsd = s.stbl.Stsd
	}
	if stsd != nil {
		for _, child := range stsd.Children {
			if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
				s.stream.Width = int(vse.Width)
				s.stream.Height = int(vse.Height)
				if vse.AvcC != nil {
					s.paramSets = parameterSets(vse.AvcC)
				}
				break
			}
		}
	}

	if parsed.IsFragmented() {
		if err := s.loadFragmented(parsed, trak); err != nil {
			return err
		}
	} else {
		s.loadProgressive()
	}

	var end uint64
	if trak.Mdia.Mdhd != nil {
		end = trak.Mdia.Mdhd.Duration
	}
	if n := len(s.samples); n > 0 && end == 0 {
		last := s.samples[n-1]
		end = last.dts + uint64(last.dur)
	}
	s.stream.Duration = s.toTime(end)
	if s.duration == 0 {
		s.duration = s.stream.Duration
	}
	return nil
}

func (s *Source) loadProgressive() {
	if s.stbl == nil || s.stbl.Stsz == nil {
		return
	}

	syncSamples := make(map[uint32]bool)
	if s.stbl.Stss != nil {
		for _, nr := range s.stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	for nr := uint32(1); nr <= s.stbl.Stsz.SampleNumber; nr++ {
		var dts uint64
		var dur uint32
		var cto int32
		if s.stbl.Stts != nil {
			dts, dur = s.stbl.Stts.GetDecodeTime(nr)
		}
		if s.stbl.Ctts != nil {
			cto = s.stbl.Ctts.GetCompositionTimeOffset(nr)
		}
		// Without stss every sample is a sync sample.
		key := len(syncSamples) == 0 || syncSamples[nr]
		if s.keyframesOnly && !key {
			continue
		}
		s.samples = append(s.samples, sample{nr: nr, dts: dts, cto: cto, dur: dur, key: key})
	}
}

func (s *Source) loadFragmented(parsed *mp4.File, trak *mp4.TrakBox) error {
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if parsed.Init != nil && parsed.Init.Moov != nil && parsed.Init.Moov.Mvex != nil {
		for _, t := range parsed.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	for _, seg := range parsed.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, trackID) {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return fmt.Errorf("%w: fragment samples: %v", pipeline.ErrTruncatedStream, err)
			}
			for _, fs := range full {
				key := fs.Flags&nonSyncFlag == 0
				if s.keyframesOnly && !key {
					continue
				}
				s.samples = append(s.samples, sample{data: fs.Data, dts: fs.DecodeTime, cto: fs.CompositionTimeOffset, dur: fs.Dur, key: key})
			}
		}
	}
	return nil
}

func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd != nil && traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

func movieDuration(parsed *mp4.File) mediatime.Time {
	moov := parsed.Moov
	if parsed.IsFragmented() && parsed.Init != nil {
		moov = parsed.Init.Moov
	}
	if moov == nil || moov.Mvhd == nil || moov.Mvhd.Timescale == 0 {
		return 0
	}
	t, err := mediatime.FromRational(int64(moov.Mvhd.Duration), mediatime.Rational{Num: 1, Den: int64(moov.Mvhd.Timescale)})
	if err != nil {
		return 0
	}
	return t
}

func (s *Source) toTime(ticks uint64) mediatime.Time {
	t, err := mediatime.FromRational(int64(ticks), s.stream.TimeBase)
	if err != nil {
		return 0
	}
	return t
}

// Duration returns the movie duration, or the video track duration when the
// movie header carries none.
func (s *Source) Duration() mediatime.Time {
	return s.duration
}

// VideoStream returns the first video track.
func (s *Source) VideoStream() (ports.StreamInfo, error) {
	if s.streamErr != nil {
		return ports.StreamInfo{}, s.streamErr
	}
	return s.stream, nil
}

// Info returns the container properties. Bitrate is averaged over the whole file.
func (s *Source) Info() ports.SourceInfo {
	info := ports.SourceInfo{Path: s.path, Container: "mp4", Size: s.size}
	if ms := s.duration.Milliseconds(); ms > 0 {
		info.Bitrate = s.size * 8 * 1000 / ms
	}
	return info
}

// NextPacket returns the next video sample in decode order.
func (s *Source) NextPacket() (ports.Packet, error) {
	if s.streamErr != nil || s.next >= len(s.samples) {
		return ports.Packet{}, io.EOF
	}
	smp := s.samples[s.next]
	s.next++

	data := smp.data
	if smp.nr != 0 {
		var err error
		data, err = readSample(s.stbl, s.file, smp.nr)
		if err != nil {
			return ports.Packet{}, fmt.Errorf("%w: sample %d: %v", pipeline.ErrTruncatedStream, smp.nr, err)
		}
	}

	annexB := avccToAnnexB(data)
	if smp.key {
		annexB = append(append([]byte{}, s.paramSets...), annexB...)
	}

	pkt := ports.Packet{
		StreamIndex: s.stream.Index,
		PTS:         s.toTime(smp.dts),
		KeyFrame:    smp.key,
		Data:        annexB,
	}

	if !s.keyframesOnly {
		if smp.key {
			s.gop = s.gop[:0]
			s.gopCTS = s.gopCTS[:0]
		}
		s.gop = append(s.gop, annexB...)
		s.gopCTS = append(s.gopCTS, int64(smp.dts)+int64(smp.cto))
		s.lastPTS = pkt.PTS
	}
	return pkt, nil
}

// Decode decodes one packet into a frame.
// In all-frames mode pkt must be the packet most recently returned by NextPacket.
func (s *Source) Decode(pkt ports.Packet) ([]ports.Frame, error) {
	if s.stream.Codec != string(codecdetect.CodecH264) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, s.stream.Codec)
	}
	if !s.decoderReady {
		if err := s.decoder.Init(); err != nil {
			return nil, err
		}
		s.decoderReady = true
	}

	var img image.Image
	var err error
	switch {
	case s.keyframesOnly || (pkt.KeyFrame && len(s.gopCTS) <= 1):
		img, err = s.decoder.DecodeFrame(pkt.Data)
	case pkt.PTS != s.lastPTS:
		return nil, ErrStalePacket
	default:
		img, err = s.decoder.DecodeFrameAt(s.gop, displayIndex(s.gopCTS))
	}
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return []ports.Frame{{
		Image:       img,
		Width:       b.Dx(),
		Height:      b.Dy(),
		PixelFormat: ports.PixelFormatOf(img),
		Timestamp:   pkt.PTS,
		KeyFrame:    pkt.KeyFrame,
	}}, nil
}

// displayIndex returns the output position of the last sample in cts when
// the samples are decoded from the first and emitted in composition order.
// Equals len(cts)-1 for streams without reordering.
func displayIndex(cts []int64) int {
	last := cts[len(cts)-1]
	n := 0
	for _, c := range cts[:len(cts)-1] {
		if c < last {
			n++
		}
	}
	return n
}

// Close releases the file and decoder.
func (s *Source) Close() error {
	s.decoder.Close()
	return s.file.Close()
}

var _ ports.MediaSource = (*Source)(nil)
