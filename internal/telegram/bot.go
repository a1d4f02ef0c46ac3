package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lifesim/internal/auth"
	"lifesim/internal/dashboard"
	"lifesim/internal/logger"
	"lifesim/internal/session"
	"lifesim/internal/simulation"
)

const (
	resetCmd   = "reset_sim"
	riskPrefix = "risk:"

	// Telegram rejects messages above 4096 characters.
	maxMessageLen = 4000
)

type Bot struct {
	api       *tgbotapi.BotAPI
	s         sender
	authSvc   *auth.Service
	sessions  *session.Manager
	parseMode string

	mu      sync.Mutex
	dialogs map[int64]*dialog
	wg      sync.WaitGroup
}

func New(botToken string, authSvc *auth.Service, sessions *session.Manager, parseMode string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:       api,
		s:         botAPISender{api: api},
		authSvc:   authSvc,
		sessions:  sessions,
		parseMode: parseMode,
		dialogs:   make(map[int64]*dialog),
	}, nil
}

// Start consumes updates until ctx is cancelled, then waits for running simulations.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	logger.Get().Info("🤖 telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func sessionKey(userID int64) string { return "tg:" + strconv.FormatInt(userID, 10) }

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.authSvc.IsAllowed(msg.From.ID) {
		logger.Get().Warn("unauthorized access attempt", zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("Access denied. Ask the admin to allow your ID %d.", msg.From.ID))
		return
	}

	switch msg.Command() {
	case "allow", "remove":
		b.handleAdminCommand(msg)
		return
	case "start", "help":
		b.sendMessage(msg.Chat.ID, "I simulate the next 10 years of a life decision.\n\n/simulate – start a new simulation\n/reset – discard the current result")
		return
	case "simulate":
		b.startDialog(msg.Chat.ID, msg.From.ID)
		return
	case "reset":
		b.reset(msg.Chat.ID, msg.From.ID, true)
		return
	}

	b.mu.Lock()
	d, ok := b.dialogs[msg.From.ID]
	b.mu.Unlock()
	if !ok {
		b.sendMessage(msg.Chat.ID, "Send /simulate to start.")
		return
	}
	b.advance(ctx, msg.Chat.ID, msg.From.ID, d, msg.Text)
}

// handleAdminCommand edits the allowlist: /allow <user id>, /remove <user id>.
func (b *Bot) handleAdminCommand(msg *tgbotapi.Message) {
	if !b.authSvc.IsAdmin(msg.From.ID) {
		b.sendMessage(msg.Chat.ID, "Only the admin can change the allowlist.")
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || id == 0 {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("Usage: /%s <user id>", msg.Command()))
		return
	}
	if msg.Command() == "allow" {
		b.authSvc.Allow(id)
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("User %d allowed.", id))
	} else {
		b.authSvc.Remove(id)
		b.reset(msg.Chat.ID, id, false)
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("User %d removed.", id))
	}
	logger.Get().Info("🔐 allowlist changed", zap.String("command", msg.Command()), zap.Int64("user_id", id))
}

func (b *Bot) startDialog(chatID, userID int64) {
	if c, ok := b.sessions.Lookup(sessionKey(userID)); ok {
		switch c.Snapshot().Status {
		case session.StatusLoading:
			return
		case session.StatusComplete, session.StatusError:
			b.sendWithReset(chatID, "Reset the current simulation before starting a new one.")
			return
		}
	}
	d := newDialog()
	b.mu.Lock()
	b.dialogs[userID] = d
	b.mu.Unlock()
	b.sendMessage(chatID, d.prompt())
}

func (b *Bot) advance(ctx context.Context, chatID, userID int64, d *dialog, text string) {
	b.mu.Lock()
	complaint := d.acceptText(text)
	finished := d.done()
	if finished {
		delete(b.dialogs, userID)
	}
	b.mu.Unlock()

	switch {
	case complaint != "":
		b.sendMessage(chatID, complaint)
	case finished:
		b.submit(ctx, chatID, userID, d.input)
	case d.step == stepRisk:
		b.sendRiskKeyboard(chatID, d.prompt())
	default:
		b.sendMessage(chatID, d.prompt())
	}
}

// submit runs the request in the background and replies when it resolves.
func (b *Bot) submit(ctx context.Context, chatID, userID int64, in simulation.UserInput) {
	ctrl := b.sessions.Get(sessionKey(userID))
	if ctrl.Snapshot().Status == session.StatusLoading {
		return
	}
	b.sendMessage(chatID, "⏳ Simulating the next 10 years…")
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		st, err := ctrl.Submit(context.WithoutCancel(ctx), in)
		switch {
		case errors.Is(err, session.ErrBusy):
			return
		case errors.Is(err, session.ErrNotIdle):
			b.sendWithReset(chatID, "Reset the current simulation before starting a new one.")
			return
		case err != nil:
			b.sendMessage(chatID, err.Error())
			return
		}
		b.deliver(chatID, st)
	}()
}

func (b *Bot) deliver(chatID int64, st session.State) {
	if st.Status != session.StatusComplete || st.Result == nil {
		b.sendWithReset(chatID, st.Error)
		return
	}
	view := dashboard.Build(*st.Result)

	var buf bytes.Buffer
	if err := dashboard.RenderChartPNG(&buf, view.Chart, dashboard.ChartWidth, dashboard.ChartHeight); err != nil {
		logger.Get().Error("❌ failed to render chart", zap.Error(err))
	} else {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "trajectory.png", Bytes: buf.Bytes()})
		photo.Caption = "Life Trajectory Analysis"
		if _, err := b.s.Send(photo); err != nil {
			logger.Get().Error("failed to send chart", zap.Error(err))
		}
	}

	// The dashboard is only marked up for HTML; other modes get plain text.
	text, mode := dashboard.FormatText(view), ""
	if b.htmlMode() {
		text, mode = dashboard.FormatHTML(view), tgbotapi.ModeHTML
	}
	chunks := splitMessage(text, maxMessageLen, mode == tgbotapi.ModeHTML)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = mode
		if i == len(chunks)-1 {
			msg.ReplyMarkup = resetKeyboard()
		}
		b.send(msg)
	}
}

func (b *Bot) htmlMode() bool {
	return strings.EqualFold(b.parseMode, tgbotapi.ModeHTML)
}

// reset drops the dialog and the session of userID. notify controls the reply to chatID.
func (b *Bot) reset(chatID, userID int64, notify bool) {
	b.mu.Lock()
	delete(b.dialogs, userID)
	b.mu.Unlock()
	if err := b.sessions.Reset(sessionKey(userID)); errors.Is(err, session.ErrBusy) {
		if notify {
			b.sendMessage(chatID, "A simulation is still running.")
		}
		return
	}
	if notify {
		b.sendMessage(chatID, "Simulation reset. Send /simulate to start again.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.Get().Debug("failed to answer callback", zap.Error(err))
	}
	if cb.From == nil || cb.Message == nil || !b.authSvc.IsAllowed(cb.From.ID) {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == resetCmd:
		b.reset(chatID, cb.From.ID, true)
	case strings.HasPrefix(cb.Data, riskPrefix):
		b.mu.Lock()
		d, ok := b.dialogs[cb.From.ID]
		b.mu.Unlock()
		if !ok || d.step != stepRisk {
			return
		}
		b.advance(ctx, chatID, cb.From.ID, d, strings.TrimPrefix(cb.Data, riskPrefix))
	}
}

// SendReport delivers a text report to the admin, if one is configured.
func (b *Bot) SendReport(ctx context.Context, text string) error {
	if b.authSvc.AdminID() == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(b.authSvc.AdminID(), text)
	_, err := b.s.Send(msg)
	return err
}

func (b *Bot) sendRiskKeyboard(chatID int64, text string) {
	var row []tgbotapi.InlineKeyboardButton
	for _, r := range simulation.RiskTolerances {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(r), riskPrefix+string(r)))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	b.send(msg)
}

func resetKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("New Simulation", resetCmd)),
	)
}

func (b *Bot) sendWithReset(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	msg.ReplyMarkup = resetKeyboard()
	b.send(msg)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.s.Send(msg); err != nil {
		logger.Get().Error("failed to send message", zap.Error(err))
	}
}

// splitMessage cuts text into chunks of at most limit runes, on line boundaries where
// possible. With html set, a cut never lands inside a tag or an entity, and tags open
// at a cut are closed at the end of the chunk and reopened at the start of the next.
func splitMessage(text string, limit int, html bool) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		if n > limit {
			chunks = append(chunks, splitLine(line, limit, html)...)
			continue
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}

// tagReserve is the room kept in each piece of a long HTML line for closing tags.
const tagReserve = 32

func splitLine(line string, limit int, html bool) []string {
	r := []rune(line)
	var out []string
	var open []string
	for {
		prefix := openingTags(open)
		budget := limit - utf8.RuneCountInString(prefix)
		if html {
			budget -= tagReserve
		}
		if len(r) <= budget {
			return append(out, prefix+string(r))
		}
		cut, stack := cutPoint(r, budget, html, open)
		out = append(out, prefix+string(r[:cut])+closingTags(stack))
		r = r[cut:]
		open = stack
	}
}

// cutPoint picks where to cut r within budget runes, preferring the last space. It
// returns the tags still open at the cut.
func cutPoint(r []rune, budget int, html bool, open []string) (int, []string) {
	stack := append([]string(nil), open...)
	best, bestStack := 0, stack
	space, spaceStack := 0, stack
	inTag, inEntity := false, false
	var tag strings.Builder
	for i := 0; i <= budget; i++ {
		if i > 0 && !inTag && !inEntity {
			best, bestStack = i, append([]string(nil), stack...)
			if r[i-1] == ' ' {
				space, spaceStack = i, bestStack
			}
		}
		if i == budget || !html {
			continue
		}
		switch c := r[i]; {
		case inTag:
			if c != '>' {
				tag.WriteRune(c)
				continue
			}
			inTag = false
			name := tag.String()
			tag.Reset()
			if strings.HasPrefix(name, "/") {
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			} else if f := strings.Fields(name); len(f) > 0 {
				stack = append(stack, f[0])
			}
		case inEntity:
			if c == ';' {
				inEntity = false
			}
		case c == '<':
			inTag = true
		case c == '&':
			inEntity = true
		}
	}
	if space > 0 {
		return space, spaceStack
	}
	if best == 0 {
		return budget, stack
	}
	return best, bestStack
}

func openingTags(stack []string) string {
	var b strings.Builder
	for _, t := range stack {
		b.WriteString("<" + t + ">")
	}
	return b.String()
}

func closingTags(stack []string) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i] + ">")
	}
	return b.String()
}
