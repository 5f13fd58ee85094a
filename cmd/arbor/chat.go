package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/inference"
	"github.com/go-go-golems/arbor/pkg/session"
	"github.com/go-go-golems/arbor/pkg/ui"
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "open the conversation canvas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}

	cmd.Flags().Float32("temperature", 0.7, "sampling temperature")
	cmd.Flags().Int("max-tokens", 2048, "maximum response tokens")
	_ = viper.BindPFlags(cmd.Flags())

	return cmd
}

func runChat(ctx context.Context) error {
	apiKey := viper.GetString("openai-api-key")
	if apiKey == "" {
		return errors.New("no API key configured, set ARBOR_OPENAI_API_KEY or openai-api-key")
	}

	engine := inference.NewOpenAIEngine(
		apiKey,
		viper.GetString("openai-base-url"),
		inference.WithModel(viper.GetString("model")),
		inference.WithTemperature(float32(viper.GetFloat64("temperature"))),
		inference.WithMaxTokens(viper.GetInt("max-tokens")),
	)

	manager := conversation.NewManager(conversation.WithRoot())
	sess := session.NewSession(manager, engine,
		session.WithModel(viper.GetString("model")),
		session.WithTemperature(float32(viper.GetFloat64("temperature"))),
		session.WithMaxTokens(viper.GetInt("max-tokens")),
	)

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing event router")
		}
	}()

	p := tea.NewProgram(
		ui.NewModel(sess),
		tea.WithAltScreen(),
		tea.WithOutput(os.Stderr),
	)

	sess.Publisher().SubscribePublisher("ui", router.Publisher)
	router.AddHandler("ui", "ui", ui.ForwardToProgram(p))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer p.Quit()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		<-router.Running()
		_, err := p.Run()
		return err
	})

	return eg.Wait()
}
