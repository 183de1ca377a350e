// gazekey - gaze-controlled keyboard server
// Serves the REST/WebSocket API, optionally driving a local camera through a
// face-mesh sidecar.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/teslashibe/go-gazekey/internal/config"
	"github.com/teslashibe/go-gazekey/internal/log"
	"github.com/teslashibe/go-gazekey/pkg/camera"
	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/keyboard"
	"github.com/teslashibe/go-gazekey/pkg/landmarks"
	"github.com/teslashibe/go-gazekey/pkg/predictor"
	"github.com/teslashibe/go-gazekey/pkg/session"
	"github.com/teslashibe/go-gazekey/pkg/speech"
	"github.com/teslashibe/go-gazekey/pkg/tts"
	"github.com/teslashibe/go-gazekey/pkg/web"
)

type options struct {
	configPath   string
	staticDir    string
	cameraPreset string
}

func main() {
	cfg, opts := parseFlags()
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts); err != nil {
		log.Error("❌ gazekey stopped", "error", err)
		os.Exit(1)
	}
}

// parseFlags loads the config file and applies explicitly set flags over it.
func parseFlags() (config.Config, options) {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.StringVar(&opts.staticDir, "static", "", "Serve a browser client from this directory")
	flag.StringVar(&opts.cameraPreset, "camera-preset", "default", "Camera preset: default, low, 720p")

	port := flag.String("port", config.DefaultPort, "HTTP port")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	sensitivity := flag.Float64("sensitivity", config.DefaultSensitivity, "Gaze sensitivity in [0,1]")
	policy := flag.String("policy", config.GazePolicyAdaptive, "Gaze threshold policy: adaptive, fixed")
	track := flag.Bool("track", false, "Start with tracking enabled")
	pred := flag.String("predictor", config.PredictorCorpus, "Word predictor: corpus, static")
	dict := flag.String("dict", "", "Extra word list (.json, .yaml, .txt)")
	learned := flag.String("learned-db", "", "SQLite file for learned words")
	noSpeech := flag.Bool("no-speech", false, "Disable text-to-speech")
	announce := flag.Bool("announce", false, "Speak suggestions as the cursor reaches them")
	cam := flag.Bool("camera", false, "Capture from a local camera")
	device := flag.Int("device", config.DefaultCameraDevice, "Camera device index")
	landmarkURL := flag.String("landmark-url", "", "Face mesh sidecar URL")
	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "debug":
			if *debug {
				cfg.LogLevel = "debug"
			}
		case "sensitivity":
			cfg.Gaze.Sensitivity = *sensitivity
		case "policy":
			cfg.Gaze.Policy = *policy
		case "track":
			cfg.Gaze.TrackOnStart = *track
		case "predictor":
			cfg.Words.Predictor = *pred
		case "dict":
			cfg.Words.CustomPath = *dict
		case "learned-db":
			cfg.Words.LearnedDB = *learned
		case "no-speech":
			cfg.Speech.Enabled = !*noSpeech
		case "announce":
			cfg.Keyboard.AnnounceSuggestions = *announce
		case "camera":
			cfg.Camera.Enabled = *cam
		case "device":
			cfg.Camera.Device = *device
		case "landmark-url":
			cfg.Camera.LandmarkURL = *landmarkURL
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg, opts
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	logger := log.Component("main")

	var store predictor.WordStore
	if cfg.Words.LearnedDB != "" {
		s, err := predictor.OpenSQLiteStore(cfg.Words.LearnedDB)
		if err != nil {
			return fmt.Errorf("open learned words: %w", err)
		}
		defer s.Close()
		store = s
	}
	pred := predictor.New(predictor.Config{
		Kind:       predictor.Kind(cfg.Words.Predictor),
		CustomPath: cfg.Words.CustomPath,
		Store:      store,
	})

	policy, err := eyestate.ParsePolicy(cfg.Gaze.Policy)
	if err != nil {
		return err
	}

	player := speech.NewBeepPlayer()
	defer player.Close()

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	kopts := []keyboard.Option{keyboard.WithAnnounceSuggestions(cfg.Keyboard.AnnounceSuggestions)}
	if cfg.Keyboard.Click {
		kopts = append(kopts, keyboard.WithFeedback(player))
	}
	if cfg.Speech.Enabled {
		spk, err := newSpeaker(cfg.Speech, player)
		if err != nil {
			logger.Warn("speech disabled", "error", err)
		} else {
			kopts = append(kopts, keyboard.WithSpeaker(spk))
			wg.Add(1)
			go func() {
				defer wg.Done()
				spk.Run(ctx)
			}()
		}
	}

	sess := session.New(pred, session.Options{
		Sensitivity: eyestate.NewSensitivity(cfg.Gaze.Sensitivity),
		Policy:      policy,
		Decoder: decoder.Config{
			CooldownSelect: cfg.Gaze.CooldownSelect,
			CooldownNav:    cfg.Gaze.CooldownNav,
		},
		Tracking: cfg.Gaze.TrackOnStart,
		Keyboard: kopts,
	})

	camCfg := camera.DefaultConfig()
	if p := camera.GetPreset(opts.cameraPreset); p != nil {
		camCfg = *p
	} else {
		logger.Warn("unknown camera preset, using default", "preset", opts.cameraPreset, "presets", camera.PresetNames())
	}
	camCfg.Device = cfg.Camera.Device
	camCfg.Framerate = cfg.Camera.FramesPerSec

	var webOpts []web.Option
	if opts.staticDir != "" {
		webOpts = append(webOpts, web.WithStaticDir(opts.staticDir))
	}
	if cfg.Camera.LandmarkURL != "" {
		extractor := landmarks.NewHTTPExtractor(cfg.Camera.LandmarkURL, landmarks.DefaultTimeout)
		webOpts = append(webOpts,
			web.WithExtractor(extractor),
			web.WithImageFilter(camera.MirrorFilter(camCfg.Quality)),
		)
	}
	srv := web.NewServer(cfg.Port, sess, webOpts...)

	if cfg.Camera.Enabled {
		if cfg.Camera.LandmarkURL == "" {
			return errors.New("camera capture needs a landmark URL")
		}
		capture, err := camera.NewCapture(camCfg)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := capture.Run(ctx, func(ctx context.Context, jpeg []byte) {
				srv.SendCameraFrame(jpeg)
				if _, err := srv.ProcessImage(ctx, jpeg); err != nil {
					logger.Debug("camera frame dropped", "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("camera stopped", "error", err)
			}
		}()
	}

	logger.Info("🚀 gazekey starting",
		"port", cfg.Port,
		"session", sess.ID(),
		"predictor", cfg.Words.Predictor,
		"tracking", cfg.Gaze.TrackOnStart,
		"camera", cfg.Camera.Enabled,
	)
	return srv.Start(ctx)
}

func newSpeaker(cfg config.SpeechConfig, player speech.Player) (*speech.Speaker, error) {
	provider, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.APIKey),
		tts.WithVoice(cfg.Voice),
		tts.WithModel(cfg.Model),
		tts.WithLogger(log.Component("tts")),
	)
	if err != nil {
		return nil, err
	}
	chain, err := tts.NewChain(log.Component("tts"), provider)
	if err != nil {
		return nil, err
	}
	return speech.NewSpeaker(tts.NewCache(chain, tts.DefaultCacheSize), player), nil
}
