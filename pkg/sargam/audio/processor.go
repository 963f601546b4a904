package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/sargam/pkg/utils"
	"github.com/lrstanley/go-ytdlp"
)

// DefaultSampleRate is the rate every input is resampled to before pitch
// tracking.
const DefaultSampleRate = 44100

type ConvertWAVConfig struct {
	SampleRate int
	Timeout    time.Duration
}

// ConvertToMonoWAV transcodes any ffmpeg-readable input into a mono 16-bit
// PCM WAV at cfg.SampleRate inside outputDir and returns its path. The
// original file is left untouched.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+".mono.wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed on %s: %w (%s)", filepath.Base(inputPath), err, strings.TrimSpace(string(out)))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// DownloadYouTubeAudio fetches the best audio stream of a single video with
// yt-dlp, extracts it to WAV in outputDir and returns the file path.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL string, outputDir string) (string, error) {
	if !utils.IsYouTubeURL(youtubeURL) {
		return "", fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}
	id, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return "", err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	template := filepath.Join(outputDir, id+".%(ext)s")
	dl := ytdlp.New().
		Format("bestaudio").
		NoPlaylist().
		ExtractAudio().
		AudioFormat("wav").
		Output(template)

	if _, err := dl.Run(ctx, youtubeURL); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download of %s failed: %w", id, err)
	}

	path := filepath.Join(outputDir, id+".wav")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("downloaded audio for %s not found: %w", id, err)
	}
	return path, nil
}
