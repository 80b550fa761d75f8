// Command studio runs image generation, image editing and video generation
// from the terminal.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/keygate"
	"studio/internal/media"
	"studio/internal/providers/genai"
	"studio/internal/providers/image"
	videoprovider "studio/internal/providers/video"
	"studio/internal/studio"
	"studio/internal/video"
)

const usage = `usage: studio <command> [flags]

commands:
  image   generate an image from a prompt
  edit    edit an image with an instruction
  video   generate a video from an image and a prompt
`

type env struct {
	cfg      *infra.Config
	logger   infra.Logger
	client   *genai.Client
	selector *credentials.Selector
	gate     *keygate.Gate
	encoder  *media.Encoder
	images   *studio.GenerationClient
	closeFn  func()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "image":
		err = runImage(ctx, args)
	case "edit":
		err = runEdit(ctx, args)
	case "video":
		err = runVideo(ctx, args)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, domain.UserMessage(err))
		os.Exit(1)
	}
}

func runImage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	prompt := fs.String("prompt", "", "what to generate")
	aspect := fs.String("aspect", string(domain.AspectSquare), "aspect ratio (1:1, 16:9, 9:16, 4:3, 3:4)")
	out := fs.String("out", "image.jpg", "output file")
	verbose := fs.Bool("v", false, "verbose logging")
	_ = fs.Parse(args)

	e, err := setup(ctx, "image", *verbose)
	if err != nil {
		return err
	}
	defer e.closeFn()

	ref, err := e.images.GenerateImage(ctx, *prompt, domain.AspectRatio(*aspect))
	if err != nil {
		return err
	}
	return writeDataURL(*out, ref.URL)
}

func runEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	prompt := fs.String("prompt", "", "editing instruction")
	input := fs.String("image", "", "image to edit")
	out := fs.String("out", "edited.png", "output file")
	verbose := fs.Bool("v", false, "verbose logging")
	_ = fs.Parse(args)

	e, err := setup(ctx, "edit", *verbose)
	if err != nil {
		return err
	}
	defer e.closeFn()

	source, err := e.loadImage(*input)
	if err != nil {
		return err
	}
	ref, err := e.images.EditImage(ctx, *prompt, source)
	if err != nil {
		return err
	}
	return writeDataURL(*out, ref.URL)
}

func runVideo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("video", flag.ExitOnError)
	prompt := fs.String("prompt", "", "how the image should move")
	input := fs.String("image", "", "starting frame")
	aspect := fs.String("aspect", string(domain.AspectLandscape), "aspect ratio (16:9 or 9:16)")
	out := fs.String("out", "video.mp4", "output file")
	verbose := fs.Bool("v", false, "verbose logging")
	_ = fs.Parse(args)

	e, err := setup(ctx, "video", *verbose)
	if err != nil {
		return err
	}
	defer e.closeFn()

	source, err := e.loadImage(*input)
	if err != nil {
		return err
	}
	locale := os.Getenv("LANG")
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	req, err := video.Request{
		Prompt:      *prompt,
		Image:       source,
		AspectRatio: domain.AspectRatio(*aspect),
		Locale:      strings.ReplaceAll(locale, "_", "-"),
	}.Validate()
	if err != nil {
		return err
	}

	if _, err := e.gate.Refresh(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("api key check failed")
	}
	if !e.gate.IsReady() {
		if err := e.gate.RequestSelection(ctx); err != nil {
			return err
		}
	}

	backend := videoprovider.NewGeminiGenerator(e.client, e.selector, nil, &e.logger)
	runner := video.NewRunner(backend, e.gate, video.Options{
		Model:        e.client.VideoModel(),
		PollInterval: e.cfg.VideoPollInterval,
		Timeout:      e.cfg.VideoPollTimeout,
		Logger:       &e.logger,
	})
	var last string
	runner.OnProgress(func(s video.Snapshot) {
		if s.Message != "" && s.Message != last {
			last = s.Message
			fmt.Fprintln(os.Stderr, s.Message)
		}
	})

	if _, err := runner.Submit(ctx, req); err != nil {
		return err
	}
	snap, err := runner.Wait(ctx)
	if err != nil {
		runner.Reset()
		return err
	}
	if snap.Err != nil {
		return snap.Err
	}
	if snap.Result == nil {
		return errors.New("video generation finished without a result")
	}

	client, err := e.client.ForSelectedKey(ctx, e.selector)
	if err != nil {
		return err
	}
	data, _, err := client.Download(ctx, snap.Result.URL)
	if err != nil {
		return fmt.Errorf("download video: %w", err)
	}
	return writeFile(*out, data)
}

func setup(ctx context.Context, cmd string, verbose bool) (*env, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewCLILogger(cmd, verbose)
	e := &env{cfg: cfg, logger: logger, encoder: media.NewEncoder(cfg.MaxUploadBytes), closeFn: func() {}}

	var keys credentials.KeyStore = credentials.NewMemoryStore(cfg.GeminiAPIKey)
	if cfg.HasDatabase() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		e.closeFn = pool.Close
		keys = credentials.NewStore(infra.NewSQLRunner(pool, logger))
	}

	e.client, err = genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		EditModel:  cfg.GeminiEditModel,
		VideoModel: cfg.VeoModel,
		Logger:     &e.logger,
	})
	if err != nil {
		e.closeFn()
		return nil, err
	}
	e.selector = credentials.NewSelector(keys, terminalPrompt(os.Stdin, os.Stderr))
	e.gate = keygate.New(e.selector, keygate.Options{VerifyAfterSelect: true, Logger: &e.logger})
	e.images = studio.NewGenerationClient(image.NewGeminiGenerator(e.client, e.selector), &e.logger)
	return e, nil
}

func (e *env) loadImage(path string) (*media.Payload, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	return e.encoder.EncodeFile(path)
}

// terminalPrompt asks for a key on the terminal. An empty line dismisses.
func terminalPrompt(in io.Reader, out io.Writer) credentials.PromptFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context) (string, error) {
		fmt.Fprint(out, "Select a Gemini API key with access to video models (https://ai.google.dev/gemini-api/docs/billing).\nAPI key: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func writeDataURL(path, dataURL string) error {
	data, err := base64.StdEncoding.DecodeString(media.StripDataURL(dataURL))
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, path)
	return nil
}
