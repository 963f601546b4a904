package main

import (
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/sargam/pkg/sargam/audio"
	"github.com/himanishpuri/sargam/pkg/utils"
	"github.com/spf13/cobra"
)

type spectrogramFlags struct {
	output string
	width  int
	height int
	log10  bool
}

func newSpectrogramCmd() *cobra.Command {
	var f spectrogramFlags
	cmd := &cobra.Command{
		Use:   "spectrogram <file>",
		Short: "Render the spectrogram of a recording as a PNG",
		Long: "Render the spectrogram of a recording after the same mono conversion and\n" +
			"normalisation used for transcription. WAV input is read directly; other\n" +
			"formats need ffmpeg.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.width <= 0 || f.height <= 0 {
				return fmt.Errorf("--width and --height must be positive")
			}

			loader := audio.NewLoader(audio.LoaderConfig{SampleRate: sampleRate, TempDir: tempDir})
			var (
				buf *audio.Buffer
				err error
			)
			if utils.HasExtension(args[0], ".wav") {
				buf, err = loader.LoadWAV(args[0])
			} else {
				buf, err = loader.Load(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			out := f.output
			if out == "" {
				out = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".png"
			}
			if err := renderSpectrogram(buf, out, f); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Saved %.1fs spectrogram to %s", buf.DurationSec, out)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "PNG path (default <file>.png in the working directory)")
	cmd.Flags().IntVar(&f.width, "width", 2048, "Image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 512, "Image height in pixels, one frequency bin per row")
	cmd.Flags().BoolVar(&f.log10, "log", false, "Use a log10 magnitude scale")
	return cmd
}

func renderSpectrogram(buf *audio.Buffer, path string, f spectrogramFlags) error {
	img := spectrogram.NewImage128(image.Rect(0, 0, f.width, f.height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude.
	spectrogram.Drawfft(
		img,
		buf.Samples,
		uint32(buf.SampleRate),
		uint32(f.height),
		false,
		false,
		true,
		f.log10,
	)

	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
