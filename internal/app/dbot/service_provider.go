// Package dbot provides dependency injection and service management for the
// document bot components. It initializes and provides access to the disk
// client, repositories, template registry and the bot service.
package dbot

import (
	"fmt"
	"os"
	"path"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/DenisKhanov/DocBOT/internal/doc_bot/api"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/config"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/constant"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/repository"
	botServ "github.com/DenisKhanov/DocBOT/internal/doc_bot/service"
	"github.com/DenisKhanov/DocBOT/internal/doc_bot/templates"
)

// ServiceProvider manages the dependency injection for the document bot components.
type ServiceProvider struct {
	config *config.Config

	diskClient *api.Client
	registry   *templates.Registry
	bindings   *repository.TemplateBindings
	sessions   *repository.Sessions
	auth       *repository.AuthorizedUsers

	// Bot API
	botAPI *tgbotapi.BotAPI

	// Bot service
	botService *botServ.DocBotServices

	diskOnce       sync.Once
	registryOnce   sync.Once
	bindingsOnce   sync.Once
	sessionsOnce   sync.Once
	authOnce       sync.Once
	botAPIOnce     sync.Once
	botServiceOnce sync.Once
}

// NewServiceProvider creates a new instance of the service provider.
func NewServiceProvider(cfg *config.Config) *ServiceProvider {
	return &ServiceProvider{config: cfg}
}

// templatesFolder returns the disk folder holding the template spreadsheets.
func (s *ServiceProvider) templatesFolder() string {
	return path.Join(s.config.EnvDiskHomePath, constant.TEMPLATES_DIR_NAME)
}

// reportsFolder returns the disk folder holding the per-template document folders.
func (s *ServiceProvider) reportsFolder() string {
	return path.Join(s.config.EnvDiskHomePath, constant.REPORTS_DIR_NAME)
}

// DiskClient returns the Yandex.Disk REST client.
func (s *ServiceProvider) DiskClient() *api.Client {
	s.diskOnce.Do(func() {
		s.diskClient = api.NewClient(s.config.EnvDiskEndpoint, s.config.EnvDiskToken)
		logrus.Info("DiskClient initialized")
	})
	return s.diskClient
}

// Registry returns the template registry.
func (s *ServiceProvider) Registry() (*templates.Registry, error) {
	var err error
	s.registryOnce.Do(func() {
		s.registry, err = templates.NewRegistry(s.DiskClient(), s.templatesFolder(), s.config.EnvLocalTemplates)
		if err != nil {
			logrus.Errorf("Failed to initialize template registry: %v", err)
			s.registry = nil
		}
	})
	if s.registry == nil {
		return nil, fmt.Errorf("template registry not initialized")
	}
	logrus.Info("Registry initialized")
	return s.registry, nil
}

// Bindings returns the durable user-template binding repository.
func (s *ServiceProvider) Bindings() *repository.TemplateBindings {
	s.bindingsOnce.Do(func() {
		s.bindings = repository.NewTemplateBindings(s.config.EnvBindingsFile)
		if err := s.bindings.ReadFileToMemory(); err != nil {
			logrus.Errorf("Failed to read template bindings from file: %v", err)
		} else {
			logrus.Info("TemplateBindings initialized and state loaded")
		}
	})
	return s.bindings
}

// Sessions returns the in-memory dialogue session repository.
func (s *ServiceProvider) Sessions() *repository.Sessions {
	s.sessionsOnce.Do(func() {
		s.sessions = repository.NewSessions()
		logrus.Info("Sessions initialized")
	})
	return s.sessions
}

// Auth returns the authorized users store.
func (s *ServiceProvider) Auth() *repository.AuthorizedUsers {
	s.authOnce.Do(func() {
		s.auth = repository.NewAuthorizedUsers(s.config.EnvAuthorizedUsers)
		logrus.Info("AuthorizedUsers initialized")
	})
	return s.auth
}

// BotAPI returns the Telegram Bot API instance.
func (s *ServiceProvider) BotAPI(token string) (*tgbotapi.BotAPI, error) {
	var err error
	s.botAPIOnce.Do(func() {
		s.botAPI, err = tgbotapi.NewBotAPI(token)
		if err != nil {
			logrus.Errorf("Failed to initialize BotAPI: %v", err)
			s.botAPI = nil
		}
	})
	if s.botAPI == nil {
		return nil, fmt.Errorf("bot API not initialized")
	}

	logrus.Info("BotApi initialized")
	return s.botAPI, nil
}

// BotService returns the main document bot service.
func (s *ServiceProvider) BotService(botAPI *tgbotapi.BotAPI) (*botServ.DocBotServices, error) {
	registry, err := s.Registry()
	if err != nil {
		logrus.Errorf("Failed to get registry: %v", err)
		return nil, fmt.Errorf("bot service not initialized")
	}

	stagingDir := s.config.EnvStagingDir
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}

	s.botServiceOnce.Do(func() {
		s.botService = botServ.NewDocBot(
			botAPI,
			s.DiskClient(),
			registry,
			s.Bindings(),
			s.Sessions(),
			s.Auth(),
			s.reportsFolder(),
			stagingDir,
		)
		logrus.Info("BotService initialized")
	})
	return s.botService, nil
}
