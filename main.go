package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	classifyx "github.com/cememirsenyurt/subconscious/agent/classify"
	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	conversationx "github.com/cememirsenyurt/subconscious/agent/conversation"
	customerx "github.com/cememirsenyurt/subconscious/agent/customer"
	extractx "github.com/cememirsenyurt/subconscious/agent/extract"
	llmx "github.com/cememirsenyurt/subconscious/agent/llm"
	personax "github.com/cememirsenyurt/subconscious/agent/persona"
	promptx "github.com/cememirsenyurt/subconscious/agent/prompt"
	runx "github.com/cememirsenyurt/subconscious/agent/run"
	sessionx "github.com/cememirsenyurt/subconscious/agent/session"
	configx "github.com/cememirsenyurt/subconscious/pkg/config"
	_ "github.com/cememirsenyurt/subconscious/pkg/logger/autoload"
	"github.com/cememirsenyurt/subconscious/pkg/subconscious"
)

type AppConfig struct {
	SessionCapacity int    `envconfig:"SESSION_CAPACITY" split_words:"true" default:"1024"`
	CustomerStore   string `envconfig:"CUSTOMER_STORE" split_words:"true" default:"memory"`
	ClassifierMode  string `envconfig:"CLASSIFIER_MODE" split_words:"true" default:"rules"`
	ExtractorMode   string `envconfig:"EXTRACTOR_MODE" split_words:"true" default:"rules"`
	BusinessID      string `envconfig:"BUSINESS_ID" split_words:"true" default:"hotel"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("APP")

	engineCfg := configx.MustNew[subconscious.Config]("SUBCONSCIOUS")
	engineClient, err := subconscious.NewClient(*engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("engine client init failed")
	}

	runCfg := configx.MustNew[runx.Config]("RUN")
	runner, err := runx.NewClient(engineClient, *runCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("run client init failed")
	}

	sessions, err := sessionx.NewLRUStore(appCfg.SessionCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}

	customers, err := newCustomerStore(appCfg.CustomerStore)
	if err != nil {
		log.Fatal().Err(err).Msg("customer store init failed")
	}

	classifier, extractor, err := newNLU(ctx, appCfg.ClassifierMode, appCfg.ExtractorMode)
	if err != nil {
		log.Fatal().Err(err).Msg("classifier/extractor init failed")
	}

	orchestrator, err := conversationx.New(sessions, customers, classifier, extractor, runner, conversationx.Config{
		Engine: engineCfg.Engine,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	chatLoop(ctx, orchestrator, appCfg.BusinessID)
}

func newCustomerStore(kind string) (customerx.Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return customerx.NewMemoryStore(), nil
	case "postgres":
		cfg := configx.MustNew[customerx.BunConfig]("POSTGRES")
		return customerx.NewBunStore(*cfg)
	case "upstash":
		cfg := configx.MustNew[customerx.UpstashConfig]("UPSTASH")
		return customerx.NewUpstashStore(*cfg)
	default:
		return nil, fmt.Errorf("unknown customer store %q", kind)
	}
}

func newNLU(ctx context.Context, classifierMode, extractorMode string) (contractx.Classifier, contractx.Extractor, error) {
	var (
		classifier contractx.Classifier = classifyx.NewRules()
		extractor  contractx.Extractor  = extractx.NewRules()
	)
	if classifierMode != "llm" && extractorMode != "llm" {
		return classifier, extractor, nil
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		return nil, nil, err
	}
	prompts := promptx.LoadPromptSet()

	if classifierMode == "llm" {
		builder := llmCfg.OpenRouterFor(llmx.CapabilityClassifier)
		chatModel, err := builder.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("classifier model: %w", err)
		}
		classifier, err = classifyx.NewLLM(ctx, chatModel, prompts.Classifier, classifyx.NewRules())
		if err != nil {
			return nil, nil, err
		}
	}

	if extractorMode == "llm" {
		builder := llmCfg.OpenRouterFor(llmx.CapabilityExtractor)
		chatModel, err := builder.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("extractor model: %w", err)
		}
		extractor, err = extractx.NewLLM(ctx, chatModel, prompts.Extractor)
		if err != nil {
			return nil, nil, err
		}
	}

	return classifier, extractor, nil
}

func chatLoop(ctx context.Context, orchestrator *conversationx.Orchestrator, businessID string) {
	sessionID := uuid.NewString()
	persona := personax.Lookup(businessID)
	businessID = persona.ID

	fmt.Printf("Connected to %s (%s). Commands: /reset, /business <id>, /quit\n", persona.Name, persona.ID)
	fmt.Printf("%s: %s\n", persona.Name, persona.Greeting)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/reset":
			orchestrator.ResetSession(sessionID)
			sessionID = uuid.NewString()
			fmt.Printf("%s: %s\n", persona.Name, persona.Greeting)
			continue
		case strings.HasPrefix(line, "/business"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/business"))
			orchestrator.ResetSession(sessionID)
			sessionID = uuid.NewString()
			persona = personax.Lookup(id)
			businessID = persona.ID
			fmt.Printf("Connected to %s (%s).\n", persona.Name, persona.ID)
			fmt.Printf("%s: %s\n", persona.Name, persona.Greeting)
			continue
		}

		reply, err := orchestrator.HandleTurn(ctx, sessionID, businessID, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}
		fmt.Printf("%s: %s\n", persona.Name, reply)
	}
}
