// Package probe inspects a remote audio candidate with FFmpeg and reports
// what the stream actually contains. The resolver only encodes a naming
// preference; the probe is how an operator checks that the preferred
// candidate exists and carries the codec it claims.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// Info describes the best audio stream of a probed input.
type Info struct {
	Codec       string  `json:"codec"`
	SampleRate  int     `json:"sampleRate"`
	Channels    int     `json:"channels"`
	DurationSec float64 `json:"durationSec"`
}

// Audio opens inputURL, finds the best audio stream and returns its facts.
// No frames are decoded.
func Audio(ctx context.Context, inputURL string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context")
	}

	dict := astiav.NewDictionary()
	defer dict.Free()
	// HTTP(S) inputs: tolerate short network hiccups while reading headers
	_ = dict.Set("reconnect", "1", 0)
	_ = dict.Set("reconnect_streamed", "1", 0)
	_ = dict.Set("reconnect_delay_max", "5", 0)

	if err := fc.OpenInput(inputURL, nil, dict); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() {
		fc.CloseInput()
		fc.Free()
	}()

	if err := fc.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	st, codec, err := fc.FindBestStream(astiav.MediaTypeAudio, -1, -1)
	if err != nil {
		return nil, fmt.Errorf("find best audio stream: %w", err)
	}
	if st == nil || codec == nil {
		return nil, errors.New("no audio stream found")
	}

	info := &Info{
		Codec:      codec.Name(),
		SampleRate: st.CodecParameters().SampleRate(),
		Channels:   st.CodecParameters().ChannelLayout().Channels(),
	}
	if d := st.Duration(); d > 0 {
		info.DurationSec = float64(d) * st.TimeBase().Float64()
	}
	return info, nil
}
