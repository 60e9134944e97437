// Command loukai inspects and edits M4A stem-karaoke containers: dumping
// the raw box tree, printing the decoded karaoke payload, replacing lyric
// timing from a WebVTT file, and driving the external encoder to produce
// a fresh container from per-stem audio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	mp4 "github.com/jorgealamilla/loukai"
	"github.com/jorgealamilla/loukai/karaoke"
	"github.com/jorgealamilla/loukai/mux"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "loukai",
		Short: "Inspect and edit M4A stem-karaoke containers",
	}
	root.AddCommand(newDumpCmd(), newInspectCmd(), newSetLyricsCmd(), newMuxCmd())
	return root
}

func newDumpCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the raw ISO BMFF box tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			file, err := mp4.DecodeFile(data)
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "json":
				return dumpJSON(os.Stdout, file)
			case "text", "":
				return dumpText(os.Stdout, file)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text (default), json")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the decoded karaoke payload as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, err := karaoke.Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(song)
		},
	}
	return cmd
}

func newSetLyricsCmd() *cobra.Command {
	var vttPath string
	cmd := &cobra.Command{
		Use:   "set-lyrics <file>",
		Short: "Replace a container's lyric lines from a WebVTT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			song, err := karaoke.Load(path)
			if err != nil {
				return err
			}
			vttData, err := os.ReadFile(vttPath)
			if err != nil {
				return err
			}
			lines, parseErrs := karaoke.DecodeLyricsVTT(vttData, song.Audio.EncoderDelaySamples)
			for _, e := range parseErrs {
				fmt.Fprintf(os.Stderr, "warning: %v\n", e)
			}
			song.Lines = lines
			return karaoke.Save(song, path, new(sync.Mutex))
		},
	}
	cmd.Flags().StringVar(&vttPath, "vtt", "", "WebVTT file with the new lyric lines")
	cmd.MarkFlagRequired("vtt")
	return cmd
}

func newMuxCmd() *cobra.Command {
	var stemFlags []string
	var vttPath string
	var metaFlags []string
	cmd := &cobra.Command{
		Use:   "mux <out.stem.m4a>",
		Short: "Drive the external encoder to build a fresh stem-karaoke container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0]
			scratch, err := mux.NewScratchManager()
			if err != nil {
				return err
			}

			req := mux.MuxRequest{OutputPath: out, VTTPath: vttPath}
			song := &karaoke.Song{Audio: karaoke.Audio{EncoderDelaySamples: karaoke.AACPrimingSamples}}
			for i, s := range stemFlags {
				parts := strings.SplitN(s, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("--stem must be role=path, got %q", s)
				}
				role := parts[0]
				req.Stems = append(req.Stems, mux.StemInput{Role: role, Path: parts[1]})
				song.Audio.Sources = append(song.Audio.Sources, karaoke.Source{
					TrackIndex: uint32(i + 1),
					ID:         fmt.Sprintf("track-%d", i+1),
					Role:       karaoke.Role(role),
				})
			}
			song.Audio.Profile = profileForStemCount(len(song.Audio.Sources))

			for _, m := range metaFlags {
				parts := strings.SplitN(m, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("--meta must be key=value, got %q", m)
				}
				req.Metadata = append(req.Metadata, mux.MetadataTag{Key: parts[0], Value: parts[1]})
				switch strings.ToLower(parts[0]) {
				case "title":
					song.ITunesMetadata.Title = parts[1]
				case "artist":
					song.ITunesMetadata.Artist = parts[1]
				case "album":
					song.ITunesMetadata.Album = parts[1]
				case "year":
					song.ITunesMetadata.Year = parts[1]
				case "genre":
					song.ITunesMetadata.Genre = parts[1]
				}
			}

			vttData, err := os.ReadFile(vttPath)
			if err != nil {
				return err
			}
			lines, parseErrs := karaoke.DecodeLyricsVTT(vttData, song.Audio.EncoderDelaySamples)
			for _, e := range parseErrs {
				fmt.Fprintf(os.Stderr, "warning: %v\n", e)
			}
			song.Lines = lines

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			err = karaoke.Create(context.Background(), logger, scratch, req, song, func(p mux.Progress) {
				fmt.Fprintf(os.Stderr, "[%s] %.0f%% %s\n", p.Stage, p.Percent, p.Message)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&stemFlags, "stem", nil, "role=path, repeatable, mixdown first")
	cmd.Flags().StringVar(&vttPath, "vtt", "", "WebVTT lyric file")
	cmd.Flags().StringArrayVar(&metaFlags, "meta", nil, "key=value iTunes metadata, repeatable")
	cmd.MarkFlagRequired("vtt")
	return cmd
}

// profileForStemCount maps a track count to the closed Profile enum,
// falling back to the escape hatch for counts the schema doesn't name.
func profileForStemCount(n int) karaoke.Profile {
	switch n {
	case 2:
		return karaoke.ProfileStems2
	case 4:
		return karaoke.ProfileStems4
	default:
		return karaoke.OtherProfile(fmt.Sprintf("STEMS-%d", n))
	}
}
