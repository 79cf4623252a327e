package cmd

import (
	"fmt"
	"os"
	"time"

	"media-store/core/config"
	"media-store/core/logger"
	"media-store/core/storage"
	"media-store/feature/bundle"

	"github.com/spf13/cobra"
)

var (
	videoFlag   string
	artFlag     string
	bucketFlag  string
	prefixFlag  string
	userFlag    string
	expiresFlag int
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <song_id> <audio>",
	Short: "Upload a media bundle and print its URLs",
	Long: `Uploads an audio file (plus optional video and cover art) as one media
bundle, writes the bundle manifest, and prints the resulting URLs.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		songID := args[0]
		audioPath := args[1]

		svc := newBundleService(cmd)

		if _, err := os.Stat(audioPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Audio file not found: %s\n", audioPath)
			os.Exit(1)
		}

		in := bundle.UploadInput{
			SongID:     songID,
			Audio:      storage.FromFile(audioPath),
			Prefix:     prefixFlag,
			Metadata:   map[string]string{},
			UploaderID: userFlag,
			URLExpiry:  time.Duration(expiresFlag) * time.Second,
		}
		// Silently skip optional assets whose files are missing, matching the
		// tolerant CLI contract.
		if videoFlag != "" {
			if _, err := os.Stat(videoFlag); err == nil {
				in.Video = storage.FromFile(videoFlag)
			}
		}
		if artFlag != "" {
			if _, err := os.Stat(artFlag); err == nil {
				in.Art = storage.FromFile(artFlag)
			}
		}

		result, err := svc.Upload(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("bundle upload failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Upload complete")
		fmt.Fprintf(out, "Audio:  %s\n", result.AudioURL)
		if result.VideoURL != "" {
			fmt.Fprintf(out, "Video:  %s\n", result.VideoURL)
		}
		if result.ArtURL != "" {
			fmt.Fprintf(out, "Art:    %s\n", result.ArtURL)
		}
		if result.ManifestURL != "" {
			fmt.Fprintf(out, "Manifest: %s\n", result.ManifestURL)
		}
		return nil
	},
}

// newBundleService loads configuration and wires the bundle service. On
// unusable configuration it prints the problem and exits non-zero without an
// error reaching the command boundary.
func newBundleService(cmd *cobra.Command) *bundle.Service {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if bucketFlag != "" {
		cfg.Storage.Bucket = bucketFlag
	}
	if cfg.Storage.Bucket == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "A storage bucket is required (set STORAGE_BUCKET or pass --bucket)")
		os.Exit(1)
	}

	provider, err := storage.NewS3Provider(cfg.Storage, logg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to create storage provider: %v\n", err)
		os.Exit(1)
	}

	return bundle.NewService(provider, logg)
}

func init() {
	RootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&videoFlag, "video", "", "Path to video file (mp4)")
	uploadCmd.Flags().StringVar(&artFlag, "art", "", "Path to cover art (jpg/png)")
	uploadCmd.Flags().StringVar(&bucketFlag, "bucket", "", "Bucket name (overrides STORAGE_BUCKET env)")
	uploadCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Optional base prefix under bucket")
	uploadCmd.Flags().StringVar(&userFlag, "user", "", "Optional uploader user id")
	uploadCmd.Flags().IntVar(&expiresFlag, "expires", 3600, "Presigned URL expiry in seconds")
}
