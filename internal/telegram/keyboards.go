package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/locvowork/attendance_bot/internal/conversation"
	"github.com/locvowork/attendance_bot/internal/domain"
)

// Button labels. Only this file knows them; the driver works on commands.
const (
	labelEmployees     = "👥 Employees"
	labelMarkToday     = "✅ Mark today"
	labelMarkForDate   = "📅 Mark for date"
	labelReports       = "📊 Reports"
	labelExport        = "📥 Export"
	labelHelp          = "ℹ️ Help"
	labelAddEmployee   = "➕ Add employee"
	labelListEmployees = "📋 List employees"
	labelBack          = "⬅️ Back"
	labelGeneralReport = "📈 General report"
	labelByEmployee    = "👤 By employee"
	labelByPeriod      = "📆 By period"
	labelExportXLSX    = "📥 Export XLSX"
	labelExportCSV     = "📄 Export CSV"
	labelCancel        = "❌ Cancel"
	labelOtherDate     = "🗓 Other date…"
)

var labelCommands = map[string]conversation.Command{
	labelEmployees:     conversation.CommandEmployeesMenu,
	labelMarkToday:     conversation.CommandMarkToday,
	labelMarkForDate:   conversation.CommandMarkForDate,
	labelReports:       conversation.CommandReportsMenu,
	labelExport:        conversation.CommandExportXLSX,
	labelHelp:          conversation.CommandHelp,
	labelAddEmployee:   conversation.CommandAddEmployee,
	labelListEmployees: conversation.CommandListEmployees,
	labelBack:          conversation.CommandMainMenu,
	labelGeneralReport: conversation.CommandReportGeneral,
	labelByEmployee:    conversation.CommandReportByEmployee,
	labelByPeriod:      conversation.CommandReportByPeriod,
	labelExportXLSX:    conversation.CommandExportXLSX,
	labelExportCSV:     conversation.CommandExportCSV,
	labelCancel:        conversation.CommandCancel,
}

var slashCommands = map[string]conversation.Command{
	"start":    conversation.CommandStart,
	"menu":     conversation.CommandMainMenu,
	"cancel":   conversation.CommandCancel,
	"help":     conversation.CommandHelp,
	"checkin":  conversation.CommandCheckIn,
	"register": conversation.CommandRegisterSelf,
}

// Callback data prefixes for inline selections.
const (
	callbackEmployee  = "emp:"
	callbackDate      = "date:"
	callbackOtherDate = "date:other"
	callbackCancel    = "cancel"
)

func replyKeyboard(k conversation.Keyboard) interface{} {
	switch k {
	case conversation.KeyboardMain:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelEmployees)),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelMarkToday),
				tgbotapi.NewKeyboardButton(labelMarkForDate),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelReports),
				tgbotapi.NewKeyboardButton(labelExport),
			),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelHelp)),
		)
	case conversation.KeyboardEmployees:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelAddEmployee),
				tgbotapi.NewKeyboardButton(labelListEmployees),
			),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelBack)),
		)
	case conversation.KeyboardReports:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelGeneralReport)),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelByEmployee),
				tgbotapi.NewKeyboardButton(labelByPeriod),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(labelExportXLSX),
				tgbotapi.NewKeyboardButton(labelExportCSV),
			),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelBack)),
		)
	case conversation.KeyboardCancel:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelCancel)),
		)
	case conversation.KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(false)
	}
	return nil
}

// inlineKeyboard renders the reply's choices, or returns nil when it has
// none. A message carries one markup, so inline choices get their own
// cancel button instead of the reply keyboard.
func inlineKeyboard(r conversation.Reply) *tgbotapi.InlineKeyboardMarkup {
	if len(r.EmployeeOptions) == 0 && len(r.DateOptions) == 0 && !r.OfferOtherDate {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range r.EmployeeOptions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, callbackEmployee+strconv.FormatInt(opt.EmployeeID, 10)),
		))
	}

	// Dates go two per row.
	var row []tgbotapi.InlineKeyboardButton
	for _, d := range r.DateOptions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(d.Display(), callbackDate+d.String()))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if r.OfferOtherDate {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labelOtherDate, callbackOtherDate),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(labelCancel, callbackCancel),
	))

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// decodeCallback turns inline button data back into a command.
func decodeCallback(data string) (conversation.Input, bool) {
	switch {
	case data == callbackCancel:
		return conversation.Input{Command: conversation.CommandCancel}, true
	case data == callbackOtherDate:
		return conversation.Input{Command: conversation.CommandOtherDate}, true
	case strings.HasPrefix(data, callbackEmployee):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, callbackEmployee), 10, 64)
		if err != nil || id <= 0 {
			return conversation.Input{}, false
		}
		return conversation.Input{Command: conversation.CommandSelectEmployee, EmployeeID: id}, true
	case strings.HasPrefix(data, callbackDate):
		d, err := domain.ParseDate(strings.TrimPrefix(data, callbackDate))
		if err != nil {
			return conversation.Input{}, false
		}
		return conversation.Input{Command: conversation.CommandSelectDate, Date: d}, true
	}
	return conversation.Input{}, false
}

// decodeMessage maps a text message to a command. Unknown slash commands
// and unmatched text are passed on as free text.
func decodeMessage(m *tgbotapi.Message) conversation.Input {
	if m.IsCommand() {
		if c, ok := slashCommands[strings.ToLower(m.Command())]; ok {
			return conversation.Input{Command: c, Text: strings.TrimSpace(m.CommandArguments())}
		}
	}
	text := strings.TrimSpace(m.Text)
	if c, ok := labelCommands[text]; ok {
		return conversation.Input{Command: c}
	}
	return conversation.Input{Command: conversation.CommandNone, Text: text}
}
