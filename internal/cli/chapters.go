package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/audiospine/internal/mp4"
)

// ChaptersCmd creates the chapters command.
// The env parameter provides injectable dependencies for testing.
func ChaptersCmd(env *Env) *cobra.Command {
	var (
		asJSON  bool
		trackID uint32
	)

	cmd := &cobra.Command{
		Use:   "chapters <mp4-file>",
		Short: "List chapter markers in an MPEG-4 file",
		Long: `List the chapter markers embedded in an MPEG-4 container.

Chapters are read from the container's chapter text track (the track
referenced by a 'chap' track reference). A file without a chapter track
produces an empty listing, not an error.`,
		Example: `  audiospine chapters audiobook.m4a
  audiospine chapters podcast.mp4 --json
  audiospine chapters audiobook.m4a --track 3  # read a specific text track`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChapters(env, args[0], asJSON, trackID)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit chapters as JSON")
	cmd.Flags().Uint32Var(&trackID, "track", 0, "Read a specific track ID instead of following the chapter reference")

	return cmd
}

func runChapters(env *Env, inputPath string, asJSON bool, trackID uint32) error {
	f, err := os.Open(inputPath) // #nosec G304 -- user-specified input file
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat input file: %w", err)
	}

	var chapters []mp4.Chapter
	if trackID != 0 {
		chapters, err = mp4.ExtractChaptersFromTrack(f, info.Size(), trackID)
	} else {
		chapters, err = mp4.ExtractChapters(f, info.Size())
	}
	if err != nil {
		return err
	}

	if asJSON {
		return renderChaptersJSON(env.Stdout, chapters)
	}
	return renderChaptersTable(env.Stdout, chapters)
}
