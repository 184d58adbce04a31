// Package main provides the entry point for the sheetvox CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sheetvox/internal/cache"
	"github.com/dgnsrekt/sheetvox/internal/pipeline"
	"github.com/dgnsrekt/sheetvox/internal/sheet"
	"github.com/dgnsrekt/sheetvox/internal/store"
	"github.com/dgnsrekt/sheetvox/internal/tts"
	"github.com/dgnsrekt/sheetvox/ui"
	"github.com/dgnsrekt/sheetvox/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	sourceColumn string
	targetColumn string
	voice        string
	model        string
	outputFormat string
	maxRetries   int
	tui          bool
	mouse        bool
	debug        bool

	rootCmd = &cobra.Command{
		Use:   "sheetvox [SHEET]",
		Short: "Turn a spreadsheet column into hosted voice notes",
		Long: paragraph(
			fmt.Sprintf("\nRead text rows from a %s, synthesize each row to speech, publish the audio to S3, and write the public URL back to the same row.", keyword("Google Sheet")),
		),
		Example: paragraph(
			"sheetvox 1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms\nsheetvox 'https://docs.google.com/spreadsheet?id=1BxiMVs' -s A -t B --tui",
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// credentials is everything sheetvox reads from the environment rather
// than from flags or the config file.
type credentials struct {
	// Google service-account key with access to the spreadsheet.
	GoogleCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// OpenAI-compatible speech endpoint.
	TTSURL    string `env:"SHEETVOX_TTS_URL"`
	TTSAPIKey string `env:"SHEETVOX_TTS_API_KEY"`

	// S3 target for the synthesized audio.
	Bucket          string `env:"SHEETVOX_S3_BUCKET"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"SHEETVOX_S3_ENDPOINT"`
}

func validateOptions(_ *cobra.Command) error {
	// grab config values from Viper
	sourceColumn = viper.GetString("source")
	targetColumn = viper.GetString("target")
	voice = viper.GetString("voice")
	model = viper.GetString("model")
	outputFormat = viper.GetString("format")
	maxRetries = viper.GetInt("max_retries")
	tui = viper.GetBool("tui")
	mouse = viper.GetBool("mouse")
	debug = viper.GetBool("debug")

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	// Column letters must parse, and must differ, before any network
	// work happens.
	src, err := sheet.ColumnIndex(sourceColumn)
	if err != nil {
		return fmt.Errorf("--source: %w", err)
	}
	dst, err := sheet.ColumnIndex(targetColumn)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	if src == dst {
		return fmt.Errorf("source and target are both column %s", sheet.ColumnLabel(src))
	}

	if maxRetries < 1 {
		return fmt.Errorf("--max-retries must be at least 1, got %d", maxRetries)
	}
	if rpm := viper.GetInt("requests_per_minute"); rpm < 1 || rpm > 600 {
		return fmt.Errorf("requests_per_minute must be between 1 and 600, got %d", rpm)
	}
	if size := viper.GetInt("cache.max_size"); size < 1 || size > 10000 {
		return fmt.Errorf("cache max_size must be between 1 and 10000 MB, got %d", size)
	}

	return nil
}

func execute(_ *cobra.Command, args []string) error {
	// Everything secret comes from the environment.
	creds, err := env.ParseAs[credentials]()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}

	if tui && !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("cannot use the TUI without a terminal")
	}

	ctx := context.Background()

	client, err := sheet.NewClient(ctx, sheet.Config{
		CredentialsFile: utils.ExpandPath(creds.GoogleCredentials),
	})
	if err != nil {
		return fmt.Errorf("%w\n\nSet GOOGLE_APPLICATION_CREDENTIALS to a service-account key file that can read and write the spreadsheet.", err)
	}

	var audioCache *cache.AudioCache
	if dir := viper.GetString("cache.dir"); dir != "" {
		audioCache, err = cache.New(cache.Config{
			Dir:      utils.ExpandPath(dir),
			MaxBytes: int64(viper.GetInt("cache.max_size")) << 20,
		})
		if err != nil {
			// A broken cache only costs resynthesis.
			log.Warn("audio cache disabled", "dir", dir, "error", err)
			audioCache = nil
		}
	}

	engine := tts.NewSpeechEngine(tts.Config{
		URL:               creds.TTSURL,
		APIKey:            creds.TTSAPIKey,
		Model:             model,
		Voice:             voice,
		OutputFormat:      outputFormat,
		MaxRetries:        maxRetries,
		RequestsPerMinute: viper.GetInt("requests_per_minute"),
		Cache:             audioCache,
	})
	if err := engine.Validate(); err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	if creds.Bucket == "" {
		return errors.New("no S3 bucket configured\n\nSet SHEETVOX_S3_BUCKET to the bucket that should host the audio files.")
	}
	publisher, err := store.NewS3Publisher(store.S3Config{
		Bucket:          creds.Bucket,
		Region:          creds.Region,
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		Endpoint:        creds.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("s3 publisher: %w", err)
	}

	pcfg := pipeline.Config{
		Source:      client,
		Sink:        client,
		Synthesizer: engine,
		Publisher:   publisher,
	}
	job := pipeline.Job{
		SheetRef:     args[0],
		SourceColumn: sourceColumn,
		TargetColumn: targetColumn,
	}

	if tui {
		return runTUI(pcfg, job)
	}

	pcfg.Reporter = pipeline.LogReporter{}
	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}
	if _, err := p.Run(ctx, job); err != nil {
		return err
	}

	if stats := engine.CacheStats(); stats != nil {
		log.Debug("cache stats",
			"hits", stats.Hits,
			"misses", stats.Misses,
			"evictions", stats.Evictions)
	}
	return nil
}

func runTUI(pcfg pipeline.Config, job pipeline.Job) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.SheetRef = job.SheetRef
	cfg.SourceColumn = job.SourceColumn
	cfg.TargetColumn = job.TargetColumn
	cfg.EnableMouse = mouse

	// The alt screen owns the terminal; logs stay out of it unless they
	// go to a file.
	if os.Getenv("SHEETVOX_LOGFILE") == "" {
		log.SetOutput(io.Discard)
	}

	program := ui.NewProgram(cfg, func(ctx context.Context, reporter pipeline.Reporter) (*pipeline.Summary, error) {
		pcfg.Reporter = reporter
		p, err := pipeline.New(pcfg)
		if err != nil {
			return nil, err
		}
		return p.Run(ctx, job)
	})

	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return ui.RunError(finalModel)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&sourceColumn, "source", "s", "A", "column letter holding the text to synthesize")
	rootCmd.Flags().StringVarP(&targetColumn, "target", "t", "B", "column letter that receives the audio URLs")
	rootCmd.Flags().StringVar(&voice, "voice", tts.DefaultVoice, "voice used for synthesis")
	rootCmd.Flags().StringVar(&model, "model", tts.DefaultModel, "model used for synthesis")
	rootCmd.Flags().StringVar(&outputFormat, "format", tts.DefaultOutputFormat, "audio output format requested from the endpoint")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", tts.DefaultMaxRetries, "rate-limited attempts per row before giving up")
	rootCmd.Flags().BoolVar(&tui, "tui", false, "display the run in a TUI")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug logging")

	// Config bindings
	_ = viper.BindPFlag("source", rootCmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("target", rootCmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("max_retries", rootCmd.Flags().Lookup("max-retries"))
	_ = viper.BindPFlag("tui", rootCmd.Flags().Lookup("tui"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("source", "A")
	viper.SetDefault("target", "B")
	viper.SetDefault("voice", tts.DefaultVoice)
	viper.SetDefault("model", tts.DefaultModel)
	viper.SetDefault("format", tts.DefaultOutputFormat)
	viper.SetDefault("max_retries", tts.DefaultMaxRetries)
	viper.SetDefault("requests_per_minute", 50)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", 256)

	rootCmd.AddCommand(configCmd, voicesCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "sheetvox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "sheetvox")}, dirs...)
	}

	if c := os.Getenv("SHEETVOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("sheetvox")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("sheetvox")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "sheetvox.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
