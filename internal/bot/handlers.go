package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/iyaskobsp-spec/helpme.bot/internal/booking"
	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
	"github.com/iyaskobsp-spec/helpme.bot/internal/scheduler"
)

// advance moves the session along the dialog FSM. Stale keyboards make users
// arrive from states the table does not link, so a refused transition forces
// the state instead of refusing the action; the commit path is gated on the
// conversation data, never on the state alone.
func (b *Bot) advance(session *booking.Session, to booking.State) {
	if !b.fsm.Transition(session, to) {
		session.SetState(to)
	}
}

func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	session := b.sessions.GetOrCreate(msg.From.ID)
	session.Data.Phone = models.DigitsOnly(msg.Contact.PhoneNumber)

	out := tgbotapi.NewMessage(msg.Chat.ID, "Дякую! ✅ Телефон збережено.")
	out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, _ = b.tg.Send(out)

	switch {
	case session.Data.Await == booking.AwaitWorkedPhone:
		session.Data.Await = booking.AwaitNone
		b.showMyAttendance(ctx, msg.Chat.ID, 0, session)
	case session.Data.PendingRow != 0:
		if !session.Data.ReadyToCommit() {
			session.Data.Await = booking.AwaitName
			b.reply(msg.Chat.ID, "Вкажіть ПІБ у форматі: Прізвище Ім’я")
			return
		}
		row := session.Data.PendingRow
		b.completeReservation(ctx, msg.Chat.ID, msg.From.ID, session, row)
	case session.Data.Await == booking.AwaitCreatePhone:
		session.Data.Await = booking.AwaitNone
		session.Data.Mode = booking.ModeCreate
		reply := tgbotapi.NewMessage(msg.Chat.ID, "📍 Телефон збережено. Тепер обери регіон:")
		reply.ReplyMarkup = regionKeyboard()
		_, _ = b.tg.Send(reply)
	default:
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Оберіть регіон:")
		reply.ReplyMarkup = regionKeyboard()
		_, _ = b.tg.Send(reply)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	session := b.sessions.GetOrCreate(msg.From.ID)
	text := strings.TrimSpace(msg.Text)

	switch session.Data.Await {
	case booking.AwaitName:
		b.handleNameInput(ctx, msg, session, text)
	case booking.AwaitNeeded:
		b.handleNeededInput(ctx, msg, session, text)
	}
}

func (b *Bot) handleNameInput(ctx context.Context, msg *tgbotapi.Message, session *booking.Session, text string) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		b.reply(msg.Chat.ID, "Вкажіть ПІБ у форматі: Прізвище Ім’я")
		return
	}
	for i, p := range parts {
		parts[i] = capitalizeWord(p)
	}
	session.Data.EmpName = strings.Join(parts, " ")
	session.Data.Await = booking.AwaitNone

	if session.Data.PendingRow != 0 {
		row := session.Data.PendingRow
		b.completeReservation(ctx, msg.Chat.ID, msg.From.ID, session, row)
		return
	}
	b.reply(msg.Chat.ID, "Дякую! Тепер оберіть дію в меню.")
}

func (b *Bot) handleNeededInput(ctx context.Context, msg *tgbotapi.Message, session *booking.Session, text string) {
	needed, err := strconv.Atoi(text)
	if err != nil || needed < 1 {
		b.reply(msg.Chat.ID, "❗ Введи додатне ціле число (наприклад, 1 або 2).")
		return
	}
	session.Data.Needed = needed
	session.Data.Await = booking.AwaitNone
	b.advance(session, booking.StateCapacityEntered)

	draft := booking.ShiftDraft{
		Store:        session.Data.Store,
		City:         session.Data.City,
		Date:         displayDate(session.Data.Date),
		TimeStart:    session.Data.TimeStart,
		TimeEnd:      session.Data.TimeEnd,
		Needed:       needed,
		CreatorID:    strconv.FormatInt(msg.From.ID, 10),
		CreatorPhone: session.Data.Phone,
	}
	if _, err := b.engine.CreateShift(ctx, draft); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("shift creation failed")
		b.reply(msg.Chat.ID, "❌ Не вдалося створити зміну. Спробуйте пізніше.")
		return
	}
	b.cache.Invalidate(ctx, b.opts.RequestsTable)

	b.sessions.Reset(msg.From.ID)
	b.reply(msg.Chat.ID, "✅ Зміну створено. Вона з’явиться у списку доступних для бронювання.")
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID)
	if data == "noop" {
		return
	}

	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	userID := cq.From.ID
	session := b.sessions.GetOrCreate(userID)

	switch {
	case data == "menu:create":
		b.handleMenuCreate(chatID, messageID, userID, session)
	case data == "menu:book":
		session = b.sessions.Reset(userID)
		session.Data.Mode = booking.ModeBook
		b.editWithMarkup(chatID, messageID, "Оберіть регіон:", regionKeyboard())
	case data == "menu:mydone":
		b.handleMenuMyDone(ctx, chatID, messageID, session)
	case strings.HasPrefix(data, "region:"):
		b.handleRegion(ctx, chatID, messageID, session, strings.TrimPrefix(data, "region:"))
	case strings.HasPrefix(data, "pickcity:"):
		b.handlePickCity(ctx, chatID, messageID, session, strings.TrimPrefix(data, "pickcity:"))
	case strings.HasPrefix(data, "pickstore:"):
		b.handlePickStore(chatID, messageID, session, strings.TrimPrefix(data, "pickstore:"))
	case strings.HasPrefix(data, "calnav:"):
		b.handleCalendarNav(chatID, messageID, data)
	case strings.HasPrefix(data, "calnav2:"):
		b.handleBookingCalendarNav(ctx, chatID, messageID, session, data)
	case strings.HasPrefix(data, "calpick:"):
		b.handleDatePick(chatID, messageID, session, strings.TrimPrefix(data, "calpick:"))
	case strings.HasPrefix(data, "tstart:"), strings.HasPrefix(data, "tend:"):
		b.handleTimePicker(chatID, messageID, session, data)
	case strings.HasPrefix(data, "bookdate:"):
		b.handleBookDate(ctx, chatID, messageID, session, strings.TrimPrefix(data, "bookdate:"))
	case strings.HasPrefix(data, "book:"):
		b.handleBook(ctx, chatID, messageID, userID, session, strings.TrimPrefix(data, "book:"))
	case strings.HasPrefix(data, "mgrconfirm:"):
		b.handleManagerConfirm(ctx, chatID, messageID, userID, session, data)
	case strings.HasPrefix(data, "arrived:"):
		b.handleArrived(ctx, chatID, messageID, session, strings.TrimPrefix(data, "arrived:"))
	}
}

func (b *Bot) handleMenuCreate(chatID int64, messageID int, userID int64, session *booking.Session) {
	if session.Data.Phone == "" {
		session.Data.Await = booking.AwaitCreatePhone
		msg := tgbotapi.NewMessage(chatID, "📲 Щоб створити зміну, спочатку поділися своїм номером телефону:")
		msg.ReplyMarkup = contactRequestKeyboard()
		_, _ = b.tg.Send(msg)
		return
	}
	session = b.sessions.Reset(userID)
	session.Data.Mode = booking.ModeCreate
	b.editWithMarkup(chatID, messageID, "Оберіть регіон:", regionKeyboard())
}

func (b *Bot) handleMenuMyDone(ctx context.Context, chatID int64, messageID int, session *booking.Session) {
	if session.Data.Phone == "" {
		session.Data.Await = booking.AwaitWorkedPhone
		msg := tgbotapi.NewMessage(chatID, "Щоб знайти твої відпрацьовані, надішли номер:")
		msg.ReplyMarkup = contactRequestKeyboard()
		_, _ = b.tg.Send(msg)
		return
	}
	b.showMyAttendance(ctx, chatID, messageID, session)
}

func (b *Bot) handleRegion(ctx context.Context, chatID int64, messageID int, session *booking.Session, region string) {
	session.Data.Region = region
	b.advance(session, booking.StateRegionChosen)

	dir, err := b.directory(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("stores directory load failed")
		b.editText(chatID, messageID, "❌ Довідник магазинів недоступний. Спробуйте пізніше.")
		return
	}
	cities := dir.CitiesInRegion(region == "kyiv")
	if len(cities) == 0 {
		b.editText(chatID, messageID, "Не знайшла довідник міст у вибраному регіоні.")
		return
	}

	prompt := "Оберіть місто для бронювання:"
	if session.Data.Mode == booking.ModeCreate {
		prompt = "Оберіть місто для створення:"
	}
	b.editWithMarkup(chatID, messageID, prompt, citiesKeyboard(cities))
}

func (b *Bot) handlePickCity(ctx context.Context, chatID int64, messageID int, session *booking.Session, city string) {
	session.Data.City = city
	b.advance(session, booking.StateCityChosen)

	if session.Data.Mode != booking.ModeCreate {
		b.sendBookingCalendar(ctx, chatID, messageID, session, 0, 0, fmt.Sprintf("Місто: %s\nОберіть дату:", city))
		return
	}

	dir, err := b.directory(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("stores directory load failed")
		b.editText(chatID, messageID, "❌ Довідник магазинів недоступний. Спробуйте пізніше.")
		return
	}
	stores := dir.StoresInCity(city)
	if len(stores) == 0 {
		b.editText(chatID, messageID, fmt.Sprintf("У місті %s немає магазинів у довіднику.", city))
		return
	}
	b.editWithMarkup(chatID, messageID, fmt.Sprintf("Місто: %s\nОберіть №_магазину:", city), storesKeyboard(stores))
}

func (b *Bot) handlePickStore(chatID int64, messageID int, session *booking.Session, store string) {
	session.Data.Store = store
	b.advance(session, booking.StateStoreChosen)

	now := time.Now().In(b.opts.Location)
	b.editWithMarkup(chatID, messageID,
		fmt.Sprintf("✅ Магазин обрано: %s\n\nОберіть дату зміни:", store),
		calendarKeyboard(now.Year(), int(now.Month())))
}

func (b *Bot) handleCalendarNav(chatID int64, messageID int, data string) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return
	}
	year, _ := strconv.Atoi(parts[1])
	month, _ := strconv.Atoi(parts[2])
	year, month = stepMonth(year, month, parts[3] == "next")
	b.editWithMarkup(chatID, messageID, "Оберіть дату зміни:", calendarKeyboard(year, month))
}

func (b *Bot) handleBookingCalendarNav(ctx context.Context, chatID int64, messageID int, session *booking.Session, data string) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return
	}
	year, _ := strconv.Atoi(parts[1])
	month, _ := strconv.Atoi(parts[2])
	year, month = stepMonth(year, month, parts[3] == "next")
	b.sendBookingCalendar(ctx, chatID, messageID, session, year, month, "Оберіть дату:")
}

func (b *Bot) sendBookingCalendar(ctx context.Context, chatID int64, messageID int, session *booking.Session, year, month int, text string) {
	now := time.Now().In(b.opts.Location)
	todayUTC := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if year == 0 {
		year, month = now.Year(), int(now.Month())
	}

	openDates := map[string]bool{}
	if dir, err := b.directory(ctx); err == nil {
		if rows, _, err := b.cache.GetAllRows(ctx, b.opts.RequestsTable); err == nil {
			openDates = openDatesIn(rows, dir, session.Data.City, todayUTC, b.opts.DaysAhead)
		}
	}
	b.editWithMarkup(chatID, messageID, text, bookingCalendarKeyboard(year, month, todayUTC, openDates))
}

func (b *Bot) handleDatePick(chatID int64, messageID int, session *booking.Session, dateStr string) {
	session.Data.Date = dateStr
	b.advance(session, booking.StateDateChosen)
	b.editWithMarkup(chatID, messageID,
		fmt.Sprintf("Дата: %s\nОберіть час початку:", displayDate(dateStr)),
		timePickerKeyboard("tstart", 9, 0))
}

func (b *Bot) handleTimePicker(chatID int64, messageID int, session *booking.Session, data string) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return
	}
	prefix, action := parts[0], parts[1]
	h, _ := strconv.Atoi(parts[2])
	m, _ := strconv.Atoi(parts[3])
	step := int(b.opts.TimeStep.Minutes())

	label := "Оберіть час початку:"
	if prefix == "tend" {
		label = "Оберіть час закінчення:"
	}

	switch action {
	case "inc":
		h, m = stepTime(h, m, step)
		b.editWithMarkup(chatID, messageID, label, timePickerKeyboard(prefix, h, m))
	case "dec":
		h, m = stepTime(h, m, -step)
		b.editWithMarkup(chatID, messageID, label, timePickerKeyboard(prefix, h, m))
	case "ok":
		if prefix == "tstart" {
			session.Data.TimeStart = fmt.Sprintf("%02d:%02d", h, m)
			b.advance(session, booking.StateTimeStartChosen)
			b.editWithMarkup(chatID, messageID, "Оберіть час закінчення:", timePickerKeyboard("tend", 18, 0))
			return
		}
		session.Data.TimeEnd = fmt.Sprintf("%02d:%02d", h, m)
		session.Data.Await = booking.AwaitNeeded
		b.advance(session, booking.StateTimeEndChosen)
		b.editText(chatID, messageID, "Скільки працівників потрібно? (введи ціле число, наприклад 2)")
	}
}

func (b *Bot) handleBookDate(ctx context.Context, chatID int64, messageID int, session *booking.Session, dateStr string) {
	day, ok := models.ParseDateFlexible(dateStr)
	if !ok {
		b.editText(chatID, messageID, "Помилка читання дати.")
		return
	}
	session.Data.Date = dateStr
	b.advance(session, booking.StateDateChosen)

	dir, err := b.directory(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("stores directory load failed")
		b.editText(chatID, messageID, "❌ Довідник магазинів недоступний. Спробуйте пізніше.")
		return
	}
	rows, _, err := b.cache.GetAllRows(ctx, b.opts.RequestsTable)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("requests read failed")
		b.editText(chatID, messageID, "❌ Не вдалося прочитати список змін. Спробуйте пізніше.")
		return
	}

	options := openShiftsOn(rows, dir, session.Data.City, day)
	if len(options) == 0 {
		// A date with no shifts redisplays the calendar with a notice.
		b.advance(session, booking.StateDateChosen)
		b.sendBookingCalendar(ctx, chatID, messageID, session, 0, 0,
			"На цю дату немає доступних змін.\nОберіть іншу дату:")
		return
	}

	b.editWithMarkup(chatID, messageID,
		fmt.Sprintf("Дата: %s\nОберіть зміну:", day.Format("02.01.2006")),
		shiftListKeyboard(options))
}

func (b *Bot) handleBook(ctx context.Context, chatID int64, messageID int, userID int64, session *booking.Session, rowStr string) {
	rowIdx, err := strconv.Atoi(rowStr)
	if err != nil || rowIdx < 2 {
		return
	}

	if session.Data.Phone == "" {
		session.Data.PendingRow = rowIdx
		b.advance(session, booking.StateAwaitingIdentity)
		msg := tgbotapi.NewMessage(chatID, "Щоб завершити бронювання, надішли свій номер:")
		msg.ReplyMarkup = contactRequestKeyboard()
		_, _ = b.tg.Send(msg)
		return
	}
	if session.Data.EmpName == "" {
		session.Data.PendingRow = rowIdx
		session.Data.Await = booking.AwaitName
		b.advance(session, booking.StateAwaitingIdentity)
		b.editText(chatID, messageID, "Вкажіть ПІБ у форматі: Прізвище Ім’я")
		return
	}

	b.completeReservation(ctx, chatID, userID, session, rowIdx)
}

// completeReservation hands the identified worker to the engine and fans out
// the result. The identity gate has already passed by the time we get here.
func (b *Bot) completeReservation(ctx context.Context, chatID, userID int64, session *booking.Session, rowIdx int) {
	session.Data.PendingRow = 0
	b.advance(session, booking.StateCommitting)

	res, err := b.engine.Reserve(ctx, rowIdx, strconv.FormatInt(userID, 10), session.Data.Phone, session.Data.EmpName)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("row", rowIdx).Msg("reservation failed")
		b.reply(chatID, "❌ Сталася помилка. Спробуйте пізніше.")
		return
	}

	switch res.Outcome {
	case booking.OutcomeAlreadyBooked:
		b.reply(chatID, "ℹ️ Ти вже бронював(ла) цю зміну.")
		return
	case booking.OutcomeFull:
		b.reply(chatID, "❗ На жаль, усі місця на цю зміну вже заброньовані.")
		return
	}

	b.cache.Invalidate(ctx, b.opts.RequestsTable)
	b.advance(session, booking.StateIdle)

	city, address := b.resolvePlace(ctx, &res.Shift)
	b.reply(chatID, fmt.Sprintf(
		"✅ Твоє бронювання збережено.\nМісто: %s\nАдреса: %s\nТТ: %s\nДата: %s\nЧас: %s–%s\nСтатус: %s",
		city, address, res.Shift.Store, res.Shift.Date, res.Shift.TimeFrom, res.Shift.TimeTo, res.Status))

	managerID := models.DigitsOnly(res.Shift.CreatorID)
	if managerID == "" {
		return
	}
	mgrChat, err := strconv.ParseInt(managerID, 10, 64)
	if err != nil {
		return
	}

	b.reply(chatID, "Запит надіслано керівнику на підтвердження.")

	workerPhone := models.DigitsOnly(session.Data.Phone)
	mgrText := fmt.Sprintf(
		"🔔 Запит на бронювання зміни\nМісто: %s\nАдреса: %s\nТТ: %s\nДата: %s\nЧас: %s–%s\nПрацівник: %s • +%s\nПоточний статус: %s",
		city, address, res.Shift.Store, res.Shift.Date, res.Shift.TimeFrom, res.Shift.TimeTo,
		session.Data.EmpName, workerPhone, res.Status)
	mgrMsg := tgbotapi.NewMessage(mgrChat, mgrText)
	mgrMsg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Підтвердити бронювання",
				fmt.Sprintf("mgrconfirm:%d:%d:%s", rowIdx, userID, workerPhone)),
		),
	)
	if _, err := b.tg.Send(mgrMsg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("manager", mgrChat).Msg("manager notification failed")
	}
}

func (b *Bot) handleManagerConfirm(ctx context.Context, chatID int64, messageID int, userID int64, session *booking.Session, data string) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return
	}
	rowIdx, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	workerTG, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return
	}
	workerPhone := parts[3]

	res, err := b.engine.Confirm(ctx, rowIdx, userID, session.Data.Phone)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("row", rowIdx).Msg("confirmation failed")
		b.editText(chatID, messageID, "❌ Не вдалося підтвердити. Спробуйте пізніше.")
		return
	}
	if !res.Authorized {
		b.editText(chatID, messageID, "❗ Підтвердження доступне лише керівнику, який створив зміну.")
		return
	}
	b.cache.Invalidate(ctx, b.opts.RequestsTable)

	city, address := b.resolvePlace(ctx, &res.Shift)
	phoneView := "—"
	if workerPhone != "" {
		phoneView = "+" + workerPhone
	}
	b.editText(chatID, messageID, fmt.Sprintf(
		"✅ Ви підтвердили бронювання\nМісто: %s\nАдреса: %s\nТТ: %s\nДата: %s\nЧас: %s–%s\nПрацівник: %s\nСтатус: %s",
		city, address, res.Shift.Store, res.Shift.Date, res.Shift.TimeFrom, res.Shift.TimeTo, phoneView, res.Status))

	managerPhone := models.DigitsOnly(res.Shift.CreatorPhone)
	workerText := fmt.Sprintf(
		"✅ Ваше бронювання підтверджено керівником.\nМісто: %s\nАдреса: %s\nТТ: %s\nДата: %s\nЧас: %s–%s\nТелефон керівника: +%s",
		city, address, res.Shift.Store, res.Shift.Date, res.Shift.TimeFrom, res.Shift.TimeTo, managerPhone)
	if err := b.Notify(ctx, workerTG, workerText); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("worker", workerTG).Msg("worker notification failed")
	}

	b.enqueueShiftEvents(ctx, &res.Shift, workerTG, city, address)
}

// enqueueShiftEvents derives and persists the confirmed worker's reminder and
// arrival events. Each booked worker gets their own confirmation callback, so
// over a fully confirmed shift every worker ends up with both events.
func (b *Bot) enqueueShiftEvents(ctx context.Context, shift *models.ShiftRequest, workerTG int64, city, address string) {
	if b.scheduler == nil {
		return
	}
	now := time.Now().In(b.opts.Location)
	for _, d := range scheduler.DeriveShiftEvents(*shift, city, address, b.opts.RemindHour, now, b.opts.Location) {
		if _, err := b.scheduler.Enqueue(ctx, d.Kind, workerTG, shift.RowIdx, d.DueAt, d.Payload); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("kind", string(d.Kind)).
				Int64("worker", workerTG).
				Msg("event enqueue failed")
		}
	}
}

func (b *Bot) handleArrived(ctx context.Context, chatID int64, messageID int, session *booking.Session, rowStr string) {
	rowIdx, err := strconv.Atoi(rowStr)
	if err != nil || rowIdx < 2 {
		return
	}

	if err := b.engine.ConfirmArrival(ctx, rowIdx, "", session.Data.EmpName, session.Data.Phone); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("row", rowIdx).Msg("arrival confirmation failed")
		b.editText(chatID, messageID, "❌ Не вдалося відмітити прибуття.")
		return
	}

	b.editText(chatID, messageID, "✅ Дякуємо! Прибуття відмічено.")

	menu := tgbotapi.NewMessage(chatID, "Оберіть дію:")
	menu.ReplyMarkup = stableMenuKeyboard()
	_, _ = b.tg.Send(menu)
}

// showMyAttendance lists the worker's logged shifts, newest first, matched by
// phone digits. messageID 0 sends a fresh message instead of editing.
func (b *Bot) showMyAttendance(ctx context.Context, chatID int64, messageID int, session *booking.Session) {
	phoneDigits := models.DigitsOnly(session.Data.Phone)

	rows, _, err := b.cache.GetAllRows(ctx, b.engine.AttendanceTable())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("attendance read failed")
		rows = nil
	}

	type record struct {
		date    time.Time
		dateRaw string
		city    string
		store   string
		arrived string
	}
	var mine []record
	for i, cells := range rows {
		if i == 0 || len(cells) < 7 {
			continue
		}
		if models.DigitsOnly(cells[5]) != phoneDigits {
			continue
		}
		rec := record{dateRaw: cells[3], city: cells[0], store: cells[1], arrived: cells[6]}
		if d, ok := models.ParseDateFlexible(cells[3]); ok {
			rec.date = d
		}
		mine = append(mine, rec)
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].date.After(mine[j].date) })

	if len(mine) == 0 {
		b.sendOrEdit(chatID, messageID, "Наразі немає відмічених як відпрацьовані.")
		return
	}
	if len(mine) > 10 {
		mine = mine[:10]
	}

	var sb strings.Builder
	sb.WriteString("🗂 Твої відпрацьовані зміни:\n\n")
	for _, r := range mine {
		arrived := r.arrived
		if arrived == "" {
			arrived = "—"
		}
		sb.WriteString(fmt.Sprintf("%s • %s • ТТ %s\nПідтвердження прибуття: %s\n\n",
			r.dateRaw, r.city, r.store, arrived))
	}
	b.sendOrEdit(chatID, messageID, sb.String())
}

func (b *Bot) sendOrEdit(chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.reply(chatID, text)
		return
	}
	b.editText(chatID, messageID, text)
}

// resolvePlace fills in city and address from the Stores directory; the
// address always comes from the directory, the city only when the Requests
// row leaves it blank.
func (b *Bot) resolvePlace(ctx context.Context, shift *models.ShiftRequest) (string, string) {
	dir, err := b.directory(ctx)
	if err != nil {
		return shift.City, ""
	}
	city := dir.CityOf(shift)
	address := ""
	if e, ok := dir.Lookup(shift.Store); ok {
		address = e.Address
	}
	return city, address
}

// displayDate converts a calendar pick (YYYY-MM-DD) to the sheet's display
// format; anything else passes through unchanged.
func displayDate(s string) string {
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d.Format("02.01.2006")
	}
	return s
}

func capitalizeWord(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
