package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotController answers the Telegram commands of linked studio accounts.
type BotController struct {
	bot     *bot.Bot
	auth    *service.AuthService
	classes *service.ClassService
	logger  *zap.Logger
	now     func() time.Time
}

func NewBotController(
	botInstance *bot.Bot,
	auth *service.AuthService,
	classes *service.ClassService,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:     botInstance,
		auth:    auth,
		classes: classes,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterHandlers registers the commands and publishes the command menu.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/today", bot.MatchTypeExact, c.handleToday)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypeExact, c.handleWeek)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "Link this chat with your studio account"},
		{Command: "today", Description: "Today's classes"},
		{Command: "week", Description: "This week's calendar"},
		{Command: "help", Description: "What this bot can do"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start blocks until ctx is cancelled.
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	code := startCode(update.Message.Text)
	if code == "" {
		c.reply(ctx, b, chatID, "Hi! To get studio notifications here, open your profile in the studio app, "+
			"create a Telegram link and send me the command it shows, e.g. /start ABCD123456.")
		return
	}

	user, err := c.auth.LinkTelegram(ctx, code, chatID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.reply(ctx, b, chatID, "This link code is unknown or was already used. Please create a new one in the app.")
			return
		}
		c.logger.Error("Failed to link telegram", zap.Int64("chat_id", chatID), zap.Error(err))
		c.reply(ctx, b, chatID, "Something went wrong, please try again later.")
		return
	}

	c.reply(ctx, b, chatID, fmt.Sprintf("Linked to %s. New messages will show up here. Try /today.", user.Email))
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, b, update.Message.Chat.ID, helpText)
}

func (c *BotController) handleToday(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess, ok := c.chatSession(ctx, b, chatID)
	if !ok {
		return
	}
	today := c.now().UTC()
	instances, err := c.classes.InstancesOn(ctx, sess, today)
	if err != nil {
		c.logger.Error("Failed to load today's classes", zap.Int64("chat_id", chatID), zap.Error(err))
		c.reply(ctx, b, chatID, "Could not load today's classes, please try again later.")
		return
	}
	c.reply(ctx, b, chatID, formatDay(today, instances))
}

func (c *BotController) handleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess, ok := c.chatSession(ctx, b, chatID)
	if !ok {
		return
	}
	img, err := c.classes.RenderWeek(ctx, sess, c.now().UTC())
	if err != nil {
		c.logger.Error("Failed to render week", zap.Int64("chat_id", chatID), zap.Error(err))
		c.reply(ctx, b, chatID, "Could not draw the calendar, please try again later.")
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo:  &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(img)},
	})
	if err != nil {
		c.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// chatSession resolves the linked account, telling the chat when there is none.
func (c *BotController) chatSession(ctx context.Context, b *bot.Bot, chatID int64) (*session.Session, bool) {
	sess, err := c.auth.SessionForChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.reply(ctx, b, chatID, "This chat is not linked yet. Send /start with the code from the app.")
			return nil, false
		}
		c.logger.Error("Failed to resolve chat session", zap.Int64("chat_id", chatID), zap.Error(err))
		c.reply(ctx, b, chatID, "Something went wrong, please try again later.")
		return nil, false
	}
	return sess, true
}

func (c *BotController) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.logger.Warn("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

const helpText = "Studio bot commands:\n\n" +
	"/start <code> - link this chat with your account\n" +
	"/today - classes scheduled for today\n" +
	"/week - this week's calendar as an image\n" +
	"/help - this message\n\n" +
	"Once linked you also get a note here whenever someone writes to you."

// startCode extracts the link code from "/start CODE".
func startCode(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	if cmd, _, _ := strings.Cut(fields[0], "@"); cmd != "/start" {
		return ""
	}
	return strings.ToUpper(fields[1])
}

func formatDay(day time.Time, instances []model.ResolvedInstance) string {
	var sb strings.Builder
	sb.WriteString(day.Format("Monday, Jan 2"))
	sb.WriteString("\n\n")
	if len(instances) == 0 {
		sb.WriteString("No classes today.")
		return sb.String()
	}
	for _, inst := range instances {
		fmt.Fprintf(&sb, "%s-%s  %s", inst.StartTime, inst.EndTime, inst.Name)
		if inst.LocationName != "" {
			fmt.Fprintf(&sb, " (%s)", inst.LocationName)
		}
		if inst.Overridden {
			sb.WriteString(" [changed]")
		}
		if len(inst.EnrolledStudents) > 0 {
			fmt.Fprintf(&sb, "\n    %s", strings.Join(inst.EnrolledStudents, ", "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
