package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxCaptionLen ограничение Telegram на подпись к документу.
const maxCaptionLen = 1024

// TelegramOpts параметры необходимые для инициализации сервиса TelegramBotService.
type TelegramOpts struct {
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
	Message string `mapstructure:"message"`
	// APIEndpoint формат адреса Bot API, по умолчанию api.telegram.org.
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// Configured заданы ли токен и чат.
func (o TelegramOpts) Configured() bool {
	return o.Token != "" && o.ChatID != 0
}

// TelegramBotService сервис предназначенный для взаимодействия с telegram.
type TelegramBotService struct {
	opts   TelegramOpts
	logger *slog.Logger
	bot    *tgbotapi.BotAPI
}

// NewTelegramBot создает экземпляр сервиса для работы с telegram ботом.
func NewTelegramBot(opts TelegramOpts, logger *slog.Logger) (*TelegramBotService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Token == "" {
		return nil, errors.New("telegram bot token is required")
	}

	if opts.ChatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}

	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, &http.Client{})
	if err != nil {
		logger.Error("Failed to create Telegram bot", "error", err)
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	logger.Info("Telegram bot created successfully",
		"bot_user", bot.Self.UserName,
		"chat_id", opts.ChatID,
	)
	return &TelegramBotService{
		opts:   opts,
		logger: logger,
		bot:    bot,
	}, nil
}

// SendFile отправляет файл по переданному пути в telegram чат. Пустая подпись
// заменяется сообщением из настроек.
func (s *TelegramBotService) SendFile(ctx context.Context, path, caption string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Error("File not found", "path", path, "error", err)
			return fmt.Errorf("file not found at %q: %w", path, err)
		}
		s.logger.Error("Failed to access file", "path", path, "error", err)
		return fmt.Errorf("access file at %q: %w", path, err)
	}

	if caption == "" {
		caption = s.opts.Message
	}

	msg := tgbotapi.NewDocument(s.opts.ChatID, tgbotapi.FilePath(path))
	msg.Caption = truncateCaption(caption)

	if _, err := s.bot.Send(msg); err != nil {
		s.logger.Error("Failed to send file",
			"path", path,
			"chat_id", s.opts.ChatID,
			"error", err)
		return fmt.Errorf("send file: %w", err)
	}

	s.logger.Info("File sent successfully",
		"path", path,
		"chat_id", s.opts.ChatID)
	return nil
}

// truncateCaption обрезает подпись по символам, а не байтам.
func truncateCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= maxCaptionLen {
		return caption
	}
	return string(runes[:maxCaptionLen-1]) + "…"
}
