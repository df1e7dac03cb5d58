package ffmpeg

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var _ ports.VideoTool = (*Adapter)(nil)

const transitionDuration = 0.2

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) Probe(ctx context.Context, in string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,r_frame_rate,avg_frame_rate:format=duration",
		"-of", "json",
		in,
	)
	b, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return types.VideoInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(ee.Stderr))
		}
		return types.VideoInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(b)
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(b []byte) (types.VideoInfo, error) {
	var po probeOutput
	if err := json.Unmarshal(b, &po); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse ffprobe json: %w", err)
	}
	var info types.VideoInfo
	videoSeen := false
	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if videoSeen {
				continue
			}
			videoSeen = true
			info.Width, info.Height = s.Width, s.Height
			info.FPS = parseRate(s.AvgFrameRate)
			if info.FPS <= 0 {
				info.FPS = parseRate(s.RFrameRate)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if d := strings.TrimSpace(po.Format.Duration); d != "" {
		sec, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return types.VideoInfo{}, fmt.Errorf("parse duration %q: %w", d, err)
		}
		info.Duration = sec
	}
	return info, nil
}

// parseRate reads ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// ExtractAudio copies the first audio stream without re-encoding.
func (a *Adapter) ExtractAudio(ctx context.Context, in, out string) error {
	return a.run(ctx, "extract audio",
		"-y",
		"-i", in,
		"-vn",
		"-map", "0:a:0",
		"-c:a", "copy",
		out,
	)
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	return a.run(ctx, "extract audio",
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
}

func (a *Adapter) TrimVideo(ctx context.Context, in string, start, end float64, fade ports.Fade, out string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg trim: empty span %.3f-%.3f", start, end)
	}
	args := []string{
		"-y",
		"-ss", fmtSeconds(start),
		"-t", fmtSeconds(end - start),
		"-i", in,
		"-vf", trimFilter(end-start, fade),
		"-an",
	}
	args = append(args, videoCodecArgs()...)
	args = append(args, out)
	return a.run(ctx, "trim", args...)
}

// trimFilter shortens fades to half the clip so both always fit.
func trimFilter(duration float64, fade ports.Fade) string {
	d := min(fade.Duration, duration/2)
	if d <= 0 {
		return "null"
	}
	var filters []string
	if fade.In {
		filters = append(filters, "fade=t=in:st=0:d="+fmtSeconds(d))
	}
	if fade.Out {
		filters = append(filters, "fade=t=out:st="+fmtSeconds(duration-d)+":d="+fmtSeconds(d))
	}
	if len(filters) == 0 {
		return "null"
	}
	return strings.Join(filters, ",")
}

// ImageClip loops a frame-sized image for duration seconds. The image must
// already match info's frame size.
func (a *Adapter) ImageClip(ctx context.Context, image string, duration float64, info types.VideoInfo, tr types.Transition, out string) error {
	if duration <= 0 {
		return fmt.Errorf("ffmpeg image clip: non-positive duration %.3f", duration)
	}
	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", fmtSeconds(fps),
		"-i", image,
		"-filter_complex", transitionFilter(tr, duration, info.Width, info.Height, fps),
		"-t", fmtSeconds(duration),
		"-r", fmtSeconds(fps),
	}
	args = append(args, videoCodecArgs()...)
	args = append(args, out)
	return a.run(ctx, "image clip", args...)
}

func transitionFilter(tr types.Transition, duration float64, w, h int, fps float64) string {
	d := transitionDuration
	if d*2 > duration {
		d = duration / 2
	}
	td := fmtSeconds(d)
	fadeOut := "fade=t=out:st=" + fmtSeconds(duration-d) + ":d=" + td
	fadeIn := "fade=t=in:st=0:d=" + td
	switch tr {
	case types.TransitionZoom:
		return fmt.Sprintf(
			"zoompan=z='if(lt(it,%s),1+(it/%s)*0.2,1.2)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=1:s=%dx%d:fps=%s,%s,format=yuv420p",
			td, td, w, h, fmtSeconds(fps), fadeOut)
	case types.TransitionSlideLeft:
		return slide(fmt.Sprintf("x='if(lt(t,%s),W*(1-t/%s),0)':y=0", td, td), fadeOut)
	case types.TransitionSlideRight:
		return slide(fmt.Sprintf("x='if(lt(t,%s),-W*(1-t/%s),0)':y=0", td, td), fadeOut)
	case types.TransitionWipe:
		return slide(fmt.Sprintf("x=0:y='if(lt(t,%s),-H*(1-t/%s),0)'", td, td), fadeOut)
	default:
		return fadeIn + "," + fadeOut + ",format=yuv420p"
	}
}

// slide moves the image over a black copy of itself.
func slide(pos, fadeOut string) string {
	return "split[bg][fg];[bg]drawbox=t=fill:c=black[base];[base][fg]overlay=" + pos + "," + fadeOut + ",format=yuv420p"
}

// Concat joins clips with identical codec parameters by stream copy.
func (a *Adapter) Concat(ctx context.Context, parts []string, out string) error {
	if len(parts) == 0 {
		return errors.New("ffmpeg concat: no parts")
	}
	list := out + ".txt"
	if err := writeConcatList(list, parts); err != nil {
		return err
	}
	defer os.Remove(list)
	return a.run(ctx, "concat",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	)
}

func writeConcatList(path string, parts []string) error {
	var b strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("concat list: %w", err)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("concat list: %w", err)
	}
	return nil
}

func (a *Adapter) BurnSubtitles(ctx context.Context, in, assPath, fontsDir, out string) error {
	vf := "subtitles=" + escapeFilterPath(assPath)
	if fontsDir != "" {
		vf += ":fontsdir=" + escapeFilterPath(fontsDir)
	}
	args := []string{
		"-y",
		"-i", in,
		"-vf", vf,
		"-an",
	}
	args = append(args, videoCodecArgs()...)
	args = append(args, out)
	return a.run(ctx, "burn subtitles", args...)
}

// MuxAudio pairs the video stream of video with the audio stream of audio,
// both copied. The output keeps the full audio track.
func (a *Adapter) MuxAudio(ctx context.Context, video, audio, out string) error {
	return a.run(ctx, "mux",
		"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "copy",
		out,
	)
}

func (a *Adapter) SampleFrames(ctx context.Context, in string, interval, width, height int, fps float64, fn func(types.GrayFrame) error) error {
	if interval <= 0 {
		interval = 1
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("ffmpeg sample frames: invalid size %dx%d", width, height)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vf := fmt.Sprintf(`select='not(mod(n\,%d))',scale=%d:%d,format=gray`, interval, width, height)
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-i", in,
		"-vf", vf,
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg sample frames: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg sample frames: %w", err)
	}

	readErr := readFrames(bufio.NewReaderSize(stdout, width*height), interval, width, height, fps, fn)
	if readErr != nil {
		cancel()
		_ = cmd.Wait()
		return readErr
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg sample frames: %w\n%s", err, stderr.String())
	}
	return nil
}

func readFrames(r io.Reader, interval, width, height int, fps float64, fn func(types.GrayFrame) error) error {
	size := width * height
	for k := 0; ; k++ {
		pix := make([]byte, size)
		if _, err := io.ReadFull(r, pix); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame %d: %w", k, err)
		}
		idx := k * interval
		t := 0.0
		if fps > 0 {
			t = float64(idx) / fps
		}
		if err := fn(types.GrayFrame{Index: idx, Time: t, Width: width, Height: height, Pix: pix}); err != nil {
			return err
		}
	}
}

func (a *Adapter) run(ctx context.Context, op string, args ...string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

func videoCodecArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
	}
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
