package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/sashabaranov/go-openai"
	"github.com/superfeelapi/goVoiceAgent/business/agent"
	"github.com/superfeelapi/goVoiceAgent/business/call"
	"github.com/superfeelapi/goVoiceAgent/business/ledger"
	"github.com/superfeelapi/goVoiceAgent/business/notify"
	"github.com/superfeelapi/goVoiceAgent/business/otp"
	"github.com/superfeelapi/goVoiceAgent/business/tools"
	"github.com/superfeelapi/goVoiceAgent/foundation/config"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/gateway"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/inventory"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/livekit"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/mailer"
	"github.com/superfeelapi/goVoiceAgent/foundation/logger"
	"github.com/superfeelapi/goVoiceAgent/foundation/pubsub"
	"github.com/superfeelapi/goVoiceAgent/foundation/redis"
	"github.com/superfeelapi/goVoiceAgent/foundation/script"
	"github.com/superfeelapi/goVoiceAgent/foundation/sink"
	"github.com/superfeelapi/goVoiceAgent/foundation/state"
	"go.uber.org/zap"
)

var (
	version   string
	buildTime string
)

const brokerWait = time.Second

type settings struct {
	conf.Version
	Call struct {
		Flow     string        `conf:"default:shop,help:recruiter or shop"`
		Room     string        `conf:"required"`
		Identity string        `conf:"default:voice-agent"`
		Watchdog time.Duration `conf:"default:0s,help:overrides the flow watchdog when set"`
	}
	Livekit struct {
		URL       string `conf:"default:ws://localhost:7880"`
		APIKey    string `conf:"default:devkey"`
		APISecret string `conf:"default:secret,mask"`
	}
	OpenAI struct {
		APIKey      string  `conf:"mask"`
		BaseURL     string  `conf:"help:OpenAI compatible endpoint"`
		Model       string  `conf:"default:gpt-4o-mini"`
		Temperature float32 `conf:"default:0.3"`
		ToolRounds  int     `conf:"default:8"`
	}
	Gateway struct {
		Scheme string `conf:"default:ws"`
		Host   string `conf:"default:localhost:8080"`
		Path   string `conf:"default:/speech"`
		ApiKey string `conf:"mask"`
	}
	SMTP struct {
		Host     string `conf:"help:mail is skipped when host or credentials are missing"`
		Port     int    `conf:"default:587"`
		Username string `conf:"help:authenticated sender"`
		Password string `conf:"mask"`
		From     string `conf:"help:overrides the sender address"`
		StartTLS bool   `conf:"default:true"`
	}
	OTP struct {
		TTL time.Duration `conf:"default:10m,help:0 keeps codes valid until reissued"`
	}
	Redis struct {
		Enabled       bool   `conf:"default:false"`
		Address       string `conf:"default:localhost:6379"`
		Password      string `conf:"mask"`
		ResultChannel string `conf:"default:voiceAgent:results"`
	}
	Files struct {
		ResultsDirectory string `conf:"default:."`
		InventoryPath    string `conf:"default:inventory.json"`
		ScriptPath       string `conf:"help:YAML overrides for the script variables"`
	}
	Logger struct {
		LogDirectory string `conf:"noprint"`
		Level        string `conf:"default:info,help:debug|info|warn|error"`
	}
}

func main() {
	// =================================================================================================================
	// Configuration

	cfg := settings{
		Version: conf.Version{
			Build: version,
			Desc:  buildTime,
		},
	}

	help, err := conf.Parse("AGENT", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			os.Exit(0)
		}
		fmt.Println(err)
		os.Exit(1)
	}

	flow, err := config.GetFlow(cfg.Call.Flow)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	flow = flow.WithWatchdog(cfg.Call.Watchdog)

	// =================================================================================================================
	// Application Logger

	log, err := logger.New(cfg.Logger.LogDirectory, cfg.Logger.Level, flow.Name, cfg.Call.Room)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// =================================================================================================================
	// Configuration Stringify

	out, err := conf.String(&cfg)
	if err != nil {
		log.Errorw("startup", "ERROR", err)
	}
	log.Infow("startup", "version", version, "config", out)

	if err := run(cfg, flow, log); err != nil {
		log.Errorw("shutdown", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg settings, flow config.Flow, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =================================================================================================================
	// Script

	vars, err := script.Load(cfg.Files.ScriptPath)
	if err != nil {
		return err
	}

	// =================================================================================================================
	// Results Sink

	st := state.NewState()

	csv, err := sink.NewCSV(filepath.Join(cfg.Files.ResultsDirectory, flow.ResultsFile), flow.Header)
	if err != nil {
		return err
	}

	var producer sink.Producer
	switch {
	case cfg.Redis.Enabled:
		redisClient, err := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.ResultChannel, log)
		if err != nil {
			log.Errorw("startup", "ERROR", err)
			st.Set(state.Redis, false)
			break
		}
		defer redisClient.Close()
		producer = redisClient

	default:
		st.Set(state.Redis, false)
	}

	results := sink.NewMirrored(csv, producer, st, log)

	// =================================================================================================================
	// Room

	broker := pubsub.NewBroker(brokerWait)
	publish := func(topic string, data any) {
		go func() {
			if err := broker.Publish(topic, data); err != nil {
				log.Infow("room event dropped", "topic", topic, "ERROR", err)
			}
		}()
	}

	service := livekit.NewService(livekit.Config{
		URL:       cfg.Livekit.URL,
		APIKey:    cfg.Livekit.APIKey,
		APISecret: cfg.Livekit.APISecret,
	})

	room, err := livekit.Join(service, cfg.Call.Room, cfg.Call.Identity, livekit.Callbacks{
		OnParticipantLeft: func(identity string) {
			publish(call.ParticipantLeftTopic, call.ParticipantLeft{Identity: identity})
		},
		OnDisconnected: func(reason string) {
			publish(call.DisconnectedTopic, call.Disconnected{Reason: reason})
		},
	}, log)
	if err != nil {
		return err
	}

	// =================================================================================================================
	// Speech Gateway

	speech, err := gateway.Dial(ctx, gateway.Config{
		Scheme: cfg.Gateway.Scheme,
		Host:   cfg.Gateway.Host,
		Path:   cfg.Gateway.Path,
		ApiKey: cfg.Gateway.ApiKey,
	}, cfg.Call.Room, log)
	if err != nil {
		if derr := room.Delete(context.Background()); derr != nil {
			log.Errorw("startup", "ERROR", derr)
		}
		return err
	}
	defer speech.Close()

	// =================================================================================================================
	// Script Flow

	var (
		l        *ledger.Ledger
		toolset  []*tools.Tool
		prompt   string
		greeting string
	)

	switch flow.Name {
	case config.Recruiter:
		l = ledger.New(ledger.Recruiter, results, log, ledger.WithDefault(ledger.CandidateName, vars.Recruiter.CandidateName))
		toolset = tools.Recruiter(l)
		prompt = vars.Recruiter.Prompt()
		greeting = vars.Recruiter.Greeting()

	case config.Shop:
		mail := notify.New(mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			StartTLS: cfg.SMTP.StartTLS,
		}), vars.Shop.CompanyName, st, log)

		l = ledger.New(ledger.Checkout, results, log)
		toolset = tools.Checkout(tools.CheckoutConfig{
			Ledger:   l,
			Codes:    otp.New(log, otp.WithTTL(cfg.OTP.TTL), otp.WithDeliverer(mail)),
			Notifier: mail,
			Catalog: func() (inventory.Catalog, error) {
				return inventory.Load(cfg.Files.InventoryPath)
			},
			Logger: log,
		})
		prompt = vars.Shop.Prompt()
		greeting = vars.Shop.Greeting()
	}

	// =================================================================================================================
	// Conversation Driver

	oc := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		oc.BaseURL = cfg.OpenAI.BaseURL
	}

	driver := agent.New(agent.Settings{
		Config: agent.Config{
			Model:        cfg.OpenAI.Model,
			Temperature:  cfg.OpenAI.Temperature,
			ToolRounds:   cfg.OpenAI.ToolRounds,
			Instructions: prompt,
			ToolTopic:    call.ToolExecutedTopic,
		},
		Completer: openai.NewClientWithConfig(oc),
		Transport: speech,
		Tools:     tools.NewRegistry(log, toolset...),
		Publisher: broker,
		Logger:    log,
	})

	// =================================================================================================================
	// Run Call

	controller := call.New(call.Settings{
		Flow:         flow,
		Opening:      script.OpeningInstruction(greeting),
		Room:         room,
		Conversation: driver,
		Ledger:       l,
		Broker:       broker,
		Logger:       log,
	})

	defer func() {
		if p := recover(); p != nil {
			log.Errorw("shutdown", "ERROR", p)
			controller.Finalize(call.ReasonFatal)
			panic(p)
		}
	}()

	// Blocking main and waiting for the call to end.
	reason, err := controller.Run(ctx)

	log.Infow("shutdown", "status", "shutdown started", "reason", reason)
	defer log.Infow("shutdown", "status", "shutdown complete")

	return err
}
