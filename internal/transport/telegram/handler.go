package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	monitoringService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/service"
	operatorService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/service"
	selectionService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/service"
	settingsService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/service"
	statsService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/stats/service"
	"github.com/yilmazeyup/vfs-global-tracker/internal/shared/config"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

const helpText = `Available commands:
/help - Show this help message
/status - Show monitoring counters
/countries - List countries and offices
/country <code> - Switch the active country
/toggle <office> - Select or deselect an office
/interval <seconds> - Set the scan interval (60-3600)
/monitor - Start monitoring
/stop - Stop monitoring
/scan - Check the selected offices right now
/testnotify - Send a test notification with the saved credentials

Example:
/country germany
/toggle izmir
/monitor`

// Handler handles Telegram bot interactions
type Handler struct {
	cfg        *config.Config
	selection  *selectionService.Service
	monitoring *monitoringService.Service
	stats      *statsService.Service
	settings   *settingsService.Service
	operators  *operatorService.Service
}

// New creates a new Telegram handler
func New(
	cfg *config.Config,
	selection *selectionService.Service,
	monitoring *monitoringService.Service,
	stats *statsService.Service,
	settings *settingsService.Service,
	operators *operatorService.Service,
) *Handler {
	return &Handler{
		cfg:        cfg,
		selection:  selection,
		monitoring: monitoring,
		stats:      stats,
		settings:   settings,
		operators:  operators,
	}
}

// controlCommands are answered by Execute.
var controlCommands = []string{
	"/status",
	"/countries",
	"/country",
	"/toggle",
	"/interval",
	"/monitor",
	"/stop",
	"/scan",
	"/testnotify",
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandlerMatchFunc(matchCommand("/start"), h.handleStart)
	b.RegisterHandlerMatchFunc(matchCommand("/help"), h.authorized(h.handleHelp))
	for _, name := range controlCommands {
		b.RegisterHandlerMatchFunc(matchCommand(name), h.authorized(h.command))
	}
}

// commandName returns the leading command of text. Commands sent in groups
// carry the bot name (/status@my_bot); the mention is dropped.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name
}

// matchCommand matches messages whose command is exactly name, with or
// without arguments and a bot mention.
func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		return update.Message != nil && commandName(update.Message.Text) == name
	}
}

// HandleUpdate is the fallback for updates no command matched
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		reply(ctx, b, update, "Unknown command. Send /help for the list.")
	}
}

func (h *Handler) authorized(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		if !h.operators.IsAuthorized(ctx, update.Message.From.ID) {
			slog.Warn("Unauthorized command", "user_id", update.Message.From.ID, "text", update.Message.Text)
			reply(ctx, b, update, "❌ Unauthorized")
			return
		}
		next(ctx, b, update)
	}
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	operator, err := h.operators.Register(ctx, from.ID, update.Message.Chat.ID, from.Username)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		reply(ctx, b, update, "❌ You are not authorized to use this bot.")
		return
	}
	if err != nil {
		slog.Error("Failed to register operator", "error", err, "user_id", from.ID)
		reply(ctx, b, update, "❌ Failed to register, try again later.")
		return
	}

	greeting := "👋 Welcome to the VFS Global appointment tracker!"
	if operator.IsAdmin {
		greeting += "\nYou are the admin of this bot."
	}
	reply(ctx, b, update, greeting+"\n\n"+helpText)
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	reply(ctx, b, update, helpText)
}

func (h *Handler) command(ctx context.Context, b *bot.Bot, update *models.Update) {
	reply(ctx, b, update, h.Execute(ctx, update.Message.Text))
}

// Execute runs one command line and returns the reply text.
func (h *Handler) Execute(ctx context.Context, text string) string {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return helpText
	}

	cmd := commandName(text)
	args := parts[1:]

	switch cmd {
	case "/status":
		return h.status()
	case "/countries":
		return h.countries()
	case "/country":
		if len(args) != 1 {
			return "Usage: /country <code>\nExample: /country germany"
		}
		if err := h.selection.SelectCountry(ctx, args[0]); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("✅ Country set to %s", h.selection.Country().DisplayName)
	case "/toggle":
		if len(args) == 0 {
			return "Usage: /toggle <office>\nExample: /toggle izmir"
		}
		office := strings.Join(args, " ")
		selected, err := h.selection.ToggleOffice(ctx, office)
		if err != nil {
			return failure(err)
		}
		if selected {
			return fmt.Sprintf("✅ %s selected (%d office(s) active)", office, h.selection.Len())
		}
		return fmt.Sprintf("☑️ %s deselected (%d office(s) active)", office, h.selection.Len())
	case "/interval":
		if len(args) != 1 {
			return "Usage: /interval <seconds>\nExample: /interval 300"
		}
		seconds, err := strconv.Atoi(args[0])
		if err != nil {
			return "❌ Interval must be a whole number of seconds"
		}
		if err := h.monitoring.SetScanInterval(ctx, seconds); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("✅ Scan interval set to %d seconds", seconds)
	case "/monitor":
		if err := h.monitoring.Start(ctx); err != nil {
			return failure(err)
		}
		snap := h.monitoring.Snapshot()
		return fmt.Sprintf("🚀 Monitoring started, scanning every %d seconds", snap.ScanIntervalSeconds)
	case "/stop":
		h.monitoring.Stop(ctx)
		return "⏹️ Monitoring stopped"
	case "/scan":
		result, err := h.monitoring.ScanNow(ctx)
		if err != nil {
			return failure(err)
		}
		if result.Found() == 0 {
			return "🔍 Scan finished, no appointments found"
		}
		return fmt.Sprintf("🎉 %d appointment(s) found, details were sent as a notification", result.Found())
	case "/testnotify":
		if err := h.settings.TestNotificationChannel(ctx); err != nil {
			return failure(err)
		}
		return "🧪 Test notification sent"
	default:
		return "Unknown command. Send /help for the list."
	}
}

func (h *Handler) status() string {
	stats := h.stats.Current()
	country := h.selection.Country()

	return fmt.Sprintf(`📊 Monitoring Status:

State: %s
Country: %s
Offices: %s
Scan Interval: %d seconds
Total Scans: %d (%d ok, %d failed)
Success Rate: %.0f%%
Uptime: %s
Last Scan: %s
Appointments Found: %d
HTTP Port: %s%s`,
		stats.Status,
		country.DisplayName,
		officeList(h.selection.Offices()),
		stats.ScanIntervalSeconds,
		stats.TotalScans,
		stats.SuccessfulScans,
		stats.FailedScans,
		stats.SuccessRate*100,
		time.Duration(stats.UptimeSeconds)*time.Second,
		stats.LastScan,
		stats.AppointmentsFound,
		h.cfg.HTTPPort,
		h.officeStats(stats))
}

func (h *Handler) officeStats(stats statsService.Stats) string {
	if len(stats.Offices) == 0 {
		return ""
	}
	ids := slices.Sorted(maps.Keys(stats.Offices))

	var text strings.Builder
	text.WriteString("\n\n🏢 Offices:")
	for _, id := range ids {
		office := stats.Offices[id]
		last := statsService.FormatLastScan(office.LastCheck, h.location())
		text.WriteString(fmt.Sprintf("\n%s: %d checks, %d ok, %d found, last %s",
			id, office.TotalChecks, office.SuccessfulChecks, office.AppointmentsFound, last))
	}
	return text.String()
}

func (h *Handler) location() *time.Location {
	if h.cfg.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(h.cfg.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (h *Handler) countries() string {
	active := h.selection.Country()

	var text strings.Builder
	text.WriteString("🌍 Countries:\n\n")
	for _, c := range h.selection.Countries() {
		marker := "▫️"
		if c.Code == active.Code {
			marker = "▶️"
		}
		text.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, c.DisplayName, c.Code))
		for _, office := range c.Offices {
			check := "   ☐"
			if c.Code == active.Code && h.selection.Contains(office) {
				check = "   ☑"
			}
			text.WriteString(fmt.Sprintf("%s %s\n", check, office))
		}
		text.WriteString("\n")
	}
	return text.String()
}

func officeList(offices []string) string {
	if len(offices) == 0 {
		return "none"
	}
	return strings.Join(offices, ", ")
}

func failure(err error) string {
	return "❌ " + apperrors.Message(err)
}

func reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		slog.Warn("Failed to send reply", "chat_id", update.Message.Chat.ID, "error", err)
	}
}
