//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/ai-chatbot/internal/bootstrap"
	"github.com/yanqian/ai-chatbot/internal/domain/chat"
	"github.com/yanqian/ai-chatbot/internal/infra/config"
	httpiface "github.com/yanqian/ai-chatbot/internal/interface/http"
	"github.com/yanqian/ai-chatbot/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatConfig,
		provideNewsConfig,
		provideGeneratorFactory,
		provideEmbedder,
		provideVectorBackend,
		provideHealthState,
		provideQACache,
		provideNewsCache,
		provideSearchClient,
		provideWebSearcher,
		provideNewsSearcher,
		provideNewsSink,
		provideUsageRecorder,
		provideNewsService,
		chat.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
