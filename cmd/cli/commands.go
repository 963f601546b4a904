package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/sargam/pkg/logger"
	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
	"github.com/himanishpuri/sargam/pkg/sargam/storage"
	"github.com/spf13/cobra"
)

type transcribeFlags struct {
	sruti  float64
	asJSON bool
}

func (f *transcribeFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.sruti, "sruti", 0, fmt.Sprintf("Tonic (Sa) frequency in Hz (%g when unset)", sargam.DefaultTonic))
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the transcription as JSON")
}

func newTranscribeCmd() *cobra.Command {
	var f transcribeFlags
	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an audio (MP3, WAV) or MIDI file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			svc, err := createService()
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			if !f.asJSON {
				fmt.Printf("Transcribing %s (%s)...\n", path, humanize.Bytes(uint64(info.Size())))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			t, err := svc.Transcribe(ctx, path, f.sruti)
			if err != nil {
				return err
			}
			return printTranscription(t, f.asJSON)
		},
	}
	f.register(cmd)
	return cmd
}

func newYouTubeCmd() *cobra.Command {
	var f transcribeFlags
	cmd := &cobra.Command{
		Use:   "youtube <url>",
		Short: "Download a YouTube video's audio and transcribe it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := createService()
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			if !f.asJSON {
				fmt.Println("Downloading audio from YouTube...")
				fmt.Println("   This may take a few moments depending on video length")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			t, err := svc.TranscribeYouTube(ctx, args[0], f.sruti)
			if err != nil {
				return err
			}
			return printTranscription(t, f.asJSON)
		},
	}
	f.register(cmd)
	return cmd
}

func newDetectCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "detect <events.json>",
		Short: "Detect the raaga of note events saved by 'transcribe --json'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(args[0])
			if err != nil {
				return err
			}

			svc, err := createService()
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			match, err := svc.DetectRaaga(events)
			if err != nil {
				return err
			}
			fmt.Print(renderMatch(match))

			if all {
				scores, err := svc.ScoreRaagas(events)
				if err != nil {
					return err
				}
				if scores == nil {
					fmt.Printf("\nNeed at least %d swarams to score raagas, got %d\n", raaga.MinNotes, len(events))
					return nil
				}
				fmt.Println()
				fmt.Println(renderScores(scores))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also print the score breakdown of every raaga")
	return cmd
}

func newRaagasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raagas [name]",
		Short: "List the raaga catalog or show one raaga",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := createService()
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			if len(args) == 1 {
				def, ok := svc.Raaga(args[0])
				if !ok {
					return fmt.Errorf("raaga %q not found", args[0])
				}
				fmt.Print(renderDefinition(def))
				return nil
			}
			fmt.Println(renderRaagas(svc.Raagas()))
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the SQLite raaga catalog named by --catalog-db",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetLevel(logger.ParseLevel(logLevel))
			if catalogDB == "" {
				return fmt.Errorf("--catalog-db (or SARGAM_CATALOG_DB) is required")
			}
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in raagas that are not stored yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *storage.CatalogStore) error {
				n, err := store.Seed(raaga.BuiltinDefinitions())
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("Seeded %d raaga(s) into %s", n, catalogDB)))
				return nil
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <definitions.json>",
		Short: "Append raaga definitions from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := readDefinitions(args[0])
			if err != nil {
				return err
			}
			return withStore(func(store *storage.CatalogStore) error {
				for _, d := range defs {
					if err := store.Add(d); err != nil {
						return fmt.Errorf("adding %s: %w", d.Name, err)
					}
					fmt.Println(successStyle.Render("Added " + d.Name))
				}
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the stored raagas in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *storage.CatalogStore) error {
				defs, err := store.Definitions()
				if err != nil {
					return err
				}
				if len(defs) == 0 {
					fmt.Println("No raagas stored; run 'sargam catalog seed'")
					return nil
				}
				fmt.Println(renderRaagas(defs))
				return nil
			})
		},
	}

	cmd.AddCommand(seed, add, list)
	return cmd
}

func withStore(fn func(*storage.CatalogStore) error) error {
	store, err := storage.NewCatalogStoreWithPath(catalogDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printTranscription(t *models.Transcription, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(transcriptionJSON(t))
	}
	fmt.Print(renderTranscription(t))
	return nil
}

// transcriptionFile is the JSON written by 'transcribe --json' and read
// back by 'detect'.
type transcriptionFile struct {
	RequestID   string             `json:"request_id,omitempty"`
	Source      string             `json:"source,omitempty"`
	Tonic       float64            `json:"tonic,omitempty"`
	DurationSec float64            `json:"duration_sec,omitempty"`
	Swarams     []models.NoteEvent `json:"swarams"`
	Raaga       *models.RaagaMatch `json:"raaga"`
	Lyrics      []models.LyricLine `json:"lyrics,omitempty"`
}

func transcriptionJSON(t *models.Transcription) transcriptionFile {
	out := transcriptionFile{
		RequestID:   t.RequestID,
		Source:      t.Source,
		Tonic:       t.Tonic,
		DurationSec: t.DurationSec,
		Swarams:     t.Swarams,
		Raaga:       t.Raaga,
		Lyrics:      t.Lyrics,
	}
	if out.Swarams == nil {
		out.Swarams = []models.NoteEvent{}
	}
	return out
}

// readEvents accepts either a bare array of note events or a transcription
// object with a "swarams" field.
func readEvents(path string) ([]models.NoteEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var events []models.NoteEvent
	if err := json.Unmarshal(data, &events); err == nil {
		return events, nil
	}
	var file transcriptionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%s: expected a note event array or a transcription: %w", path, err)
	}
	return file.Swarams, nil
}

func readDefinitions(path string) ([]models.RaagaDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []models.RaagaDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%s: expected an array of raaga definitions: %w", path, err)
	}
	return defs, nil
}
